// Package classifier assigns packages to categories. It is pure function
// logic with no I/O: an exact-match table for well-known packages, then a
// keyword-weighted score over name and description.
package classifier

import (
	"strings"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// Weight tiers for keyword matches.
const (
	WeightHigh   = 3.0
	WeightMedium = 2.0
	WeightLow    = 1.0
)

// scoreThreshold is the minimum winning score; anything below stays
// Uncategorized.
const scoreThreshold = 2.0

// categoryKeywords binds one category to its weighted keyword table. The
// table is iterated in declaration order and score ties resolve to the
// first category seen.
type categoryKeywords struct {
	Category types.Category
	Keywords map[string]float64
}

// keywordTable is process-wide constant data, immutable after init.
var keywordTable = []categoryKeywords{
	{types.CategoryMachineLearning, map[string]float64{
		"machine learning": WeightHigh,
		"deep learning":    WeightHigh,
		"neural":           WeightHigh,
		"learn":            WeightHigh,
		"model":            WeightMedium,
		"training":         WeightMedium,
		"tensor":           WeightMedium,
		"classifier":       WeightLow,
		"inference":        WeightLow,
	}},
	{types.CategoryDataScience, map[string]float64{
		"dataframe":     WeightHigh,
		"data analysis": WeightHigh,
		"numerical":     WeightHigh,
		"statistics":    WeightMedium,
		"array":         WeightMedium,
		"data":          WeightLow,
		"csv":           WeightLow,
	}},
	{types.CategoryVisualization, map[string]float64{
		"visualization": WeightHigh,
		"plot":          WeightHigh,
		"chart":         WeightHigh,
		"graph":         WeightMedium,
		"figure":        WeightMedium,
		"draw":          WeightLow,
		"render":        WeightLow,
	}},
	{types.CategoryWebDevelopment, map[string]float64{
		"web framework": WeightHigh,
		"wsgi":          WeightHigh,
		"asgi":          WeightHigh,
		"template":      WeightMedium,
		"web":           WeightMedium,
		"rest":          WeightLow,
		"api":           WeightLow,
	}},
	{types.CategoryDatabase, map[string]float64{
		"database":    WeightHigh,
		"sql":         WeightHigh,
		"orm":         WeightHigh,
		"query":       WeightMedium,
		"storage":     WeightMedium,
		"cache":       WeightLow,
		"persistence": WeightLow,
	}},
	{types.CategoryNetworking, map[string]float64{
		"http client": WeightHigh,
		"socket":      WeightHigh,
		"http":        WeightMedium,
		"network":     WeightMedium,
		"url":         WeightMedium,
		"client":      WeightLow,
		"protocol":    WeightLow,
	}},
	{types.CategoryTesting, map[string]float64{
		"test framework": WeightHigh,
		"testing":        WeightHigh,
		"pytest":         WeightHigh,
		"mock":           WeightMedium,
		"fixture":        WeightMedium,
		"test":           WeightLow,
		"coverage":       WeightLow,
	}},
	{types.CategoryDevTools, map[string]float64{
		"linter":    WeightHigh,
		"formatter": WeightHigh,
		"packaging": WeightHigh,
		"build":     WeightMedium,
		"debug":     WeightMedium,
		"cli":       WeightLow,
		"tool":      WeightLow,
	}},
	{types.CategoryScientific, map[string]float64{
		"scientific": WeightHigh,
		"physics":    WeightHigh,
		"chemistry":  WeightHigh,
		"math":       WeightMedium,
		"signal":     WeightMedium,
		"research":   WeightLow,
	}},
	{types.CategorySecurity, map[string]float64{
		"cryptography": WeightHigh,
		"encryption":   WeightHigh,
		"security":     WeightHigh,
		"tls":          WeightMedium,
		"auth":         WeightMedium,
		"hash":         WeightLow,
		"token":        WeightLow,
	}},
	{types.CategoryUtilities, map[string]float64{
		"utility":  WeightMedium,
		"datetime": WeightMedium,
		"parsing":  WeightMedium,
		"helper":   WeightLow,
		"wrapper":  WeightLow,
	}},
}

// exactMatches maps well-known package names straight to a category,
// skipping keyword scoring entirely.
var exactMatches = map[string]types.Category{
	"numpy":          types.CategoryDataScience,
	"pandas":         types.CategoryDataScience,
	"polars":         types.CategoryDataScience,
	"jupyter":        types.CategoryDataScience,
	"ipython":        types.CategoryDataScience,
	"statsmodels":    types.CategoryDataScience,
	"scipy":          types.CategoryScientific,
	"sympy":          types.CategoryScientific,
	"scikit-learn":   types.CategoryMachineLearning,
	"tensorflow":     types.CategoryMachineLearning,
	"keras":          types.CategoryMachineLearning,
	"torch":          types.CategoryMachineLearning,
	"pytorch":        types.CategoryMachineLearning,
	"xgboost":        types.CategoryMachineLearning,
	"lightgbm":       types.CategoryMachineLearning,
	"transformers":   types.CategoryMachineLearning,
	"matplotlib":     types.CategoryVisualization,
	"seaborn":        types.CategoryVisualization,
	"plotly":         types.CategoryVisualization,
	"bokeh":          types.CategoryVisualization,
	"flask":          types.CategoryWebDevelopment,
	"django":         types.CategoryWebDevelopment,
	"fastapi":        types.CategoryWebDevelopment,
	"starlette":      types.CategoryWebDevelopment,
	"jinja2":         types.CategoryWebDevelopment,
	"requests":       types.CategoryNetworking,
	"urllib3":        types.CategoryNetworking,
	"httpx":          types.CategoryNetworking,
	"aiohttp":        types.CategoryNetworking,
	"websockets":     types.CategoryNetworking,
	"beautifulsoup4": types.CategoryNetworking,
	"sqlalchemy":     types.CategoryDatabase,
	"psycopg2":       types.CategoryDatabase,
	"pymongo":        types.CategoryDatabase,
	"redis":          types.CategoryDatabase,
	"pytest":         types.CategoryTesting,
	"tox":            types.CategoryTesting,
	"coverage":       types.CategoryTesting,
	"hypothesis":     types.CategoryTesting,
	"black":          types.CategoryDevTools,
	"flake8":         types.CategoryDevTools,
	"mypy":           types.CategoryDevTools,
	"pylint":         types.CategoryDevTools,
	"isort":          types.CategoryDevTools,
	"pip":            types.CategoryDevTools,
	"setuptools":     types.CategoryDevTools,
	"wheel":          types.CategoryDevTools,
	"click":          types.CategoryDevTools,
	"cryptography":   types.CategorySecurity,
	"pyjwt":          types.CategorySecurity,
	"bcrypt":         types.CategorySecurity,
	"paramiko":       types.CategorySecurity,
	"python-dateutil": types.CategoryUtilities,
	"pytz":            types.CategoryUtilities,
	"pyyaml":          types.CategoryUtilities,
	"pillow":          types.CategoryUtilities,
	"tqdm":            types.CategoryUtilities,
}

// Classify scores a package name and optional description against the
// tables and returns the winning category, or Uncategorized when nothing
// clears the threshold.
func Classify(name, description string) types.Category {
	key := types.PackageKey(name)
	if key == "" {
		return types.CategoryUncategorized
	}
	if cat, ok := exactMatches[key]; ok {
		return cat
	}
	return classifyByKeywords(key, description)
}

func classifyByKeywords(lowerName, description string) types.Category {
	blob := lowerName + " " + strings.ToLower(description)

	best := types.CategoryUncategorized
	bestScore := 0.0
	for _, entry := range keywordTable {
		score := 0.0
		for keyword, weight := range entry.Keywords {
			if strings.Contains(lowerName, keyword) {
				// A match in the name itself counts double.
				score += weight * 2
			} else if strings.Contains(blob, keyword) {
				score += weight
			}
		}
		// Strict > keeps the first category on ties.
		if score > bestScore {
			bestScore = score
			best = entry.Category
		}
	}

	if bestScore < scoreThreshold {
		return types.CategoryUncategorized
	}
	return best
}

// PopulateCommon classifies every record in the environment that is still
// Uncategorized and returns how many were changed. Already-categorized
// records are never touched, so a second call is a no-op.
func PopulateCommon(env *types.Environment) int {
	if env == nil {
		return 0
	}
	changed := 0
	for _, rec := range env.Packages() {
		if rec.Category != types.CategoryUncategorized && rec.Category != "" {
			continue
		}
		if cat := Classify(rec.Name, rec.Description); cat != types.CategoryUncategorized {
			rec.Category = cat
			changed++
		}
	}
	return changed
}
