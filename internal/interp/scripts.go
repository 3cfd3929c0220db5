package interp

import "fmt"

// workerBootstrap is the driver loop fed to the persistent python process.
// It reads a byte-count header line, then that many bytes of UTF-8 script
// from the raw stdin buffer (byte counts, both directions), executes
// the script against a shared globals dict, and writes a status header plus
// the captured stdout back. The shared dict is what makes this a single
// global interpreter state rather than a process-per-call model.
const workerBootstrap = `import sys, io, contextlib, traceback
_globals = {}
while True:
    header = sys.stdin.buffer.readline()
    if not header:
        break
    try:
        n = int(header)
    except ValueError:
        continue
    src = sys.stdin.buffer.read(n).decode("utf-8")
    buf = io.StringIO()
    try:
        with contextlib.redirect_stdout(buf):
            exec(src, _globals)
        out = buf.getvalue()
        sys.stdout.write("OK %d\n" % len(out.encode("utf-8")))
        sys.stdout.write(out)
    except BaseException:
        err = traceback.format_exc()
        sys.stdout.write("ERR %d\n" % len(err.encode("utf-8")))
        sys.stdout.write(err)
    sys.stdout.flush()
`

// listDistributionsScript emits a JSON array of installed distributions.
const listDistributionsScript = `import json
from importlib import metadata
out = []
for dist in metadata.distributions():
    meta = dist.metadata
    out.append({
        "name": meta.get("Name", "") or "",
        "version": dist.version or "",
        "summary": meta.get("Summary", "") or "",
        "location": str(dist.locate_file("")),
    })
print(json.dumps(out))
`

// distributionInfoScript emits one distribution as a JSON object, or null
// when it is not installed.
func distributionInfoScript(name string) string {
	return fmt.Sprintf(`import json
from importlib import metadata
try:
    dist = metadata.distribution(%q)
    meta = dist.metadata
    print(json.dumps({
        "name": meta.get("Name", "") or "",
        "version": dist.version or "",
        "summary": meta.get("Summary", "") or "",
        "location": str(dist.locate_file("")),
    }))
except metadata.PackageNotFoundError:
    print("null")
`, name)
}

const pythonVersionScript = `import platform
print(platform.python_version())
`
