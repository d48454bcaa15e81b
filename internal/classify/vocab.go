package classify

// Static classification vocabulary. These sets are data, not code: the
// source documents print a closed set of parameter names, and anything
// we do not recognize defaults to the chemical category.

var heavyMetals = map[string]struct{}{
	"aluminium": {},
	"antimony":  {},
	"arsenic":   {},
	"cadmium":   {},
	"chromium":  {},
	"copper":    {},
	"iron":      {},
	"lead":      {},
	"manganese": {},
	"mercury":   {},
	"nickel":    {},
	"selenium":  {},
}

var pesticides = map[string]struct{}{
	"atrazine":          {},
	"bentazone":         {},
	"bromoxynil":        {},
	"carbendazim":       {},
	"carbetamide":       {},
	"chlortoluron":      {},
	"clopyralid":        {},
	"dicamba":           {},
	"dichlorprop":       {},
	"diuron":            {},
	"flufenacet":        {},
	"fluroxypyr":        {},
	"isoproturon":       {},
	"linuron":           {},
	"mcpa":              {},
	"mecoprop":          {},
	"metaldehyde":       {},
	"metazachlor":       {},
	"monuron":           {},
	"pentachlorophenol": {},
	"picloram":          {},
	"propyzamide":       {},
	"quinmerac":         {},
	"simazine":          {},
	"triclopyr":         {},
}

// synonyms folds normalized spellings the documents use interchangeably
// into one canonical key.
var synonyms = map[string]string{
	"12 dichloroethane":           "1,2-dichloroethane",
	"chlorine residual":           "chlorine",
	"nitrate nitrite calculation": "nitrate/nitrite calculation",
	"total organic carbon as c":   "total organic carbon",
	"tetra  trichloroethene calc": "tetra- & trichloroethene calc",
	"hydrogen ion":                "ph",
}
