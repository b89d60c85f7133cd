package models

// ControlledThemes is the finite set of permitted theme strings. Extraction
// drops anything outside this set; profile updates reject it.
var ControlledThemes = []string{
	"ai_compute",
	"blockchain",
	"cloud_infrastructure",
	"commodities",
	"consumer_spending",
	"cybersecurity",
	"defense",
	"emerging_markets",
	"energy_transition",
	"esg",
	"ev_battery",
	"fintech",
	"healthcare_innovation",
	"inflation",
	"interest_rates",
	"luxury_goods",
	"monetary_policy",
	"real_estate",
	"semiconductors",
	"supply_chain",
}

var controlledThemeSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(ControlledThemes))
	for _, theme := range ControlledThemes {
		set[theme] = struct{}{}
	}
	return set
}()

// IsControlledTheme reports whether theme is in the controlled vocabulary
func IsControlledTheme(theme string) bool {
	_, ok := controlledThemeSet[theme]
	return ok
}

// FilterThemes drops themes outside the controlled vocabulary, preserving
// input order
func FilterThemes(themes []string) []string {
	if len(themes) == 0 {
		return nil
	}
	filtered := make([]string, 0, len(themes))
	for _, theme := range themes {
		if IsControlledTheme(theme) {
			filtered = append(filtered, theme)
		}
	}
	return filtered
}

var seedRegionSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(SeedRegions))
	for _, region := range SeedRegions {
		set[region.Code] = struct{}{}
	}
	return set
}()

var seedSectorSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(SeedSectors))
	for _, sector := range SeedSectors {
		set[sector.Code] = struct{}{}
	}
	return set
}()

// IsSeedRegion reports whether code is in the seeded region taxonomy
func IsSeedRegion(code string) bool {
	_, ok := seedRegionSet[code]
	return ok
}

// IsSeedSector reports whether code is in the seeded sector taxonomy
func IsSeedSector(code string) bool {
	_, ok := seedSectorSet[code]
	return ok
}

// FilterRegionCodes drops codes outside the region taxonomy, preserving order
func FilterRegionCodes(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	filtered := make([]string, 0, len(codes))
	for _, code := range codes {
		if IsSeedRegion(code) {
			filtered = append(filtered, code)
		}
	}
	return filtered
}

// FilterSectorCodes drops codes outside the sector taxonomy, preserving order
func FilterSectorCodes(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	filtered := make([]string, 0, len(codes))
	for _, code := range codes {
		if IsSeedSector(code) {
			filtered = append(filtered, code)
		}
	}
	return filtered
}

// TaxonomyRegion is a seeded region node
type TaxonomyRegion struct {
	Code string
	Name string
}

// TaxonomySector is a seeded sector node
type TaxonomySector struct {
	Code string
	Name string
}

// TaxonomyFactor is a seeded macro factor node
type TaxonomyFactor struct {
	FactorID string
	Name     string
	Category string
}

// SeedRegions is the core region taxonomy merged into the graph on startup
var SeedRegions = []TaxonomyRegion{
	{Code: "AMER", Name: "Americas"},
	{Code: "EMEA", Name: "Europe, Middle East and Africa"},
	{Code: "APAC", Name: "Asia Pacific"},
	{Code: "US", Name: "United States"},
	{Code: "EU", Name: "European Union"},
	{Code: "UK", Name: "United Kingdom"},
	{Code: "JP", Name: "Japan"},
	{Code: "CN", Name: "China"},
	{Code: "AU", Name: "Australia"},
}

// SeedSectors is the core sector taxonomy merged into the graph on startup
var SeedSectors = []TaxonomySector{
	{Code: "TECH", Name: "Information Technology"},
	{Code: "FINS", Name: "Financials"},
	{Code: "HLTH", Name: "Health Care"},
	{Code: "ENER", Name: "Energy"},
	{Code: "INDU", Name: "Industrials"},
	{Code: "MATS", Name: "Materials"},
	{Code: "CONS", Name: "Consumer Discretionary"},
	{Code: "STPL", Name: "Consumer Staples"},
	{Code: "UTIL", Name: "Utilities"},
	{Code: "REAL", Name: "Real Estate"},
	{Code: "COMM", Name: "Communication Services"},
}

// SeedEventTypes is the core event taxonomy merged into the graph on startup
var SeedEventTypes = []EventTypeDef{
	{Code: "EARNINGS", Name: "Earnings Release", Category: "corporate", BaseImpact: 60, DefaultTier: TierSilver},
	{Code: "GUIDANCE", Name: "Guidance Change", Category: "corporate", BaseImpact: 65, DefaultTier: TierSilver},
	{Code: "MA", Name: "Merger or Acquisition", Category: "corporate", BaseImpact: 80, DefaultTier: TierGold},
	{Code: "DIVIDEND", Name: "Dividend Action", Category: "corporate", BaseImpact: 40, DefaultTier: TierBronze},
	{Code: "MGMT_CHANGE", Name: "Management Change", Category: "corporate", BaseImpact: 45, DefaultTier: TierBronze},
	{Code: "PRODUCT_LAUNCH", Name: "Product Launch", Category: "corporate", BaseImpact: 50, DefaultTier: TierSilver},
	{Code: "REGULATORY", Name: "Regulatory Action", Category: "macro", BaseImpact: 70, DefaultTier: TierGold},
	{Code: "LITIGATION", Name: "Litigation", Category: "corporate", BaseImpact: 55, DefaultTier: TierSilver},
	{Code: "RATING_CHANGE", Name: "Credit Rating Change", Category: "market", BaseImpact: 60, DefaultTier: TierSilver},
	{Code: "LABOR_ACTION", Name: "Strike or Labor Action", Category: "operational", BaseImpact: 55, DefaultTier: TierSilver},
	{Code: "SUPPLY_DISRUPTION", Name: "Supply Chain Disruption", Category: "operational", BaseImpact: 60, DefaultTier: TierSilver},
	{Code: "MACRO_DATA", Name: "Macro Data Release", Category: "macro", BaseImpact: 50, DefaultTier: TierSilver},
	{Code: "CENTRAL_BANK", Name: "Central Bank Decision", Category: "macro", BaseImpact: 75, DefaultTier: TierGold},
	{Code: "DEFAULT", Name: "Default or Insolvency", Category: "credit", BaseImpact: 90, DefaultTier: TierPlatinum},
	{Code: "CYBER_INCIDENT", Name: "Cyber Incident", Category: "operational", BaseImpact: 65, DefaultTier: TierSilver},
}

// SeedFactors is the core macro factor taxonomy merged into the graph on startup
var SeedFactors = []TaxonomyFactor{
	{FactorID: "RATES", Name: "Interest Rates", Category: "macro"},
	{FactorID: "OIL", Name: "Crude Oil", Category: "commodity"},
	{FactorID: "USD", Name: "US Dollar", Category: "fx"},
	{FactorID: "CREDIT_SPREAD", Name: "Credit Spreads", Category: "credit"},
	{FactorID: "VOLATILITY", Name: "Equity Volatility", Category: "market"},
	{FactorID: "INFLATION", Name: "Inflation", Category: "macro"},
	{FactorID: "GROWTH", Name: "Global Growth", Category: "macro"},
	{FactorID: "SEMI_CYCLE", Name: "Semiconductor Cycle", Category: "industry"},
}
