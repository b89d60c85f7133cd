// gofr-iq-seed loads a small reference universe into a fresh index so the
// MCP server has groups, instruments, and a demo client to work against.
// Run it once after pointing GOFR_IQ_CONFIG at the target environment.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
	"github.com/parrisma/gofr-iq/internal/storage/graph"
	"github.com/parrisma/gofr-iq/internal/storage/sources"
)

type seedCompany struct {
	ticker   string
	name     string
	sector   string
	exchange string
	currency string
	country  string
	aliases  []string
}

var universe = []seedCompany{
	{"TRUCK", "Pacific Truck Holdings", "Industrials", "ASX", "AUD", "AU", []string{"Pacific Truck", "PacTruck"}},
	{"RAIL", "Coastal Rail Group", "Industrials", "ASX", "AUD", "AU", []string{"Coastal Rail"}},
	{"005930.KS", "Samsung Electronics", "Information Technology", "KRX", "KRW", "KR", []string{"Samsung", "Samsung Elec"}},
	{"9984.T", "SoftBank Group", "Information Technology", "TSE", "JPY", "JP", []string{"SoftBank"}},
	{"0700.HK", "Tencent Holdings", "Communication Services", "HKEX", "HKD", "CN", []string{"Tencent"}},
	{"BHP.AX", "BHP Group", "Materials", "ASX", "AUD", "AU", []string{"BHP", "BHP Billiton"}},
	{"CBA.AX", "Commonwealth Bank", "Financials", "ASX", "AUD", "AU", []string{"CommBank"}},
}

// peers within a sector; exposures are (ticker, factor, beta)
var peerPairs = [][2]string{
	{"TRUCK", "RAIL"},
	{"005930.KS", "0700.HK"},
}

// market indices and their constituent tickers
var indexMembers = map[string]struct {
	name    string
	tickers []string
}{
	"ASX200": {"S&P/ASX 200", []string{"TRUCK", "RAIL", "BHP.AX", "CBA.AX"}},
	"KOSPI":  {"KOSPI Composite", []string{"005930.KS"}},
	"N225":   {"Nikkei 225", []string{"9984.T"}},
	"HSI":    {"Hang Seng Index", []string{"0700.HK"}},
}

var factorExposures = []struct {
	ticker string
	factor string
	beta   float64
}{
	{"TRUCK", "OIL", 0.7},
	{"RAIL", "OIL", 0.5},
	{"CBA.AX", "RATES", -0.8},
	{"005930.KS", "SEMI_CYCLE", 1.2},
	{"BHP.AX", "GROWTH", 0.9},
}

func main() {
	configPath := flag.String("config", os.Getenv("GOFR_IQ_CONFIG"), "path to gofr-iq TOML config")
	flag.Parse()

	config, err := common.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:       arbor_models.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
	}).WithLevelFromString("info")

	if err := run(config, logger); err != nil {
		logger.Fatal().Err(err).Msg("Seeding failed")
	}
	logger.Info().Msg("Seed complete")
}

func run(config *common.Config, logger arbor.ILogger) error {
	graphDB, err := graph.NewDB(logger, &config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("graph database: %w", err)
	}
	defer graphDB.Close()

	graphIndex := graph.NewGraph(graphDB, logger)
	if err := graphIndex.InitSchema(); err != nil {
		return fmt.Errorf("graph schema: %w", err)
	}

	registry, err := sources.NewRegistry(config.Storage.Dir, graphIndex, logger)
	if err != nil {
		return fmt.Errorf("source registry: %w", err)
	}

	if err := seedGroups(graphIndex, logger); err != nil {
		return err
	}
	if err := seedUniverse(graphIndex, logger); err != nil {
		return err
	}
	if err := seedSources(registry, logger); err != nil {
		return err
	}
	return seedDemoClient(graphIndex, logger)
}

func seedGroups(g interfaces.GraphIndex, logger arbor.ILogger) error {
	for _, group := range []models.Group{
		{GroupID: "grp_apac", Name: "apac_desk", Description: "APAC coverage desk", Active: true},
		{GroupID: "grp_emea", Name: "emea_desk", Description: "EMEA coverage desk", Active: true},
	} {
		if err := g.UpsertGroup(&group); err != nil {
			return fmt.Errorf("group %s: %w", group.Name, err)
		}
		logger.Info().Str("group", group.Name).Msg("Group seeded")
	}
	return nil
}

func seedUniverse(g interfaces.GraphIndex, logger arbor.ILogger) error {
	for _, c := range universe {
		if err := g.UpsertCompany(&models.Company{
			Ticker:  c.ticker,
			Name:    c.name,
			Sector:  c.sector,
			Aliases: c.aliases,
		}); err != nil {
			return fmt.Errorf("company %s: %w", c.ticker, err)
		}
		if err := g.UpsertInstrument(&models.Instrument{
			Ticker:         c.ticker,
			Name:           c.name,
			InstrumentType: "equity",
			Exchange:       c.exchange,
			Currency:       c.currency,
			Country:        c.country,
		}, c.ticker); err != nil {
			return fmt.Errorf("instrument %s: %w", c.ticker, err)
		}
	}
	logger.Info().Int("instruments", len(universe)).Msg("Universe seeded")

	for _, pair := range peerPairs {
		a, err := g.GetNodeByKey(models.LabelInstrument, pair[0])
		if err != nil {
			return err
		}
		b, err := g.GetNodeByKey(models.LabelInstrument, pair[1])
		if err != nil {
			return err
		}
		if err := g.UpsertEdge(&models.Edge{
			Type: models.EdgePeerOf, FromGUID: a.GUID, ToGUID: b.GUID,
		}); err != nil {
			return err
		}
	}

	for code, index := range indexMembers {
		indexGUID := "index_" + code
		if err := g.UpsertNode(&models.Node{
			GUID:  indexGUID,
			Label: models.LabelIndex,
			Key:   code,
			Props: map[string]interface{}{"name": index.name},
		}); err != nil {
			return fmt.Errorf("index %s: %w", code, err)
		}
		for _, ticker := range index.tickers {
			instrument, err := g.GetNodeByKey(models.LabelInstrument, ticker)
			if err != nil {
				return err
			}
			if err := g.UpsertEdge(&models.Edge{
				Type: models.EdgeMemberOf, FromGUID: instrument.GUID, ToGUID: indexGUID,
			}); err != nil {
				return err
			}
		}
	}

	for _, e := range factorExposures {
		instrument, err := g.GetNodeByKey(models.LabelInstrument, e.ticker)
		if err != nil {
			return err
		}
		factor, err := g.GetNodeByKey(models.LabelFactor, e.factor)
		if err != nil {
			return err
		}
		if err := g.UpsertEdge(&models.Edge{
			Type: models.EdgeExposedTo, FromGUID: instrument.GUID, ToGUID: factor.GUID,
			Props: map[string]interface{}{"beta": e.beta},
		}); err != nil {
			return err
		}
	}
	return nil
}

func seedSources(registry *sources.Registry, logger arbor.ILogger) error {
	for _, source := range []models.Source{
		{
			SourceID:   "src_reuters_apac",
			GroupID:    "grp_apac",
			Name:       "Reuters Asia Wire",
			Type:       models.SourceNewsAgency,
			Region:     "APAC",
			Languages:  []string{"en", "ja", "ko"},
			TrustLevel: models.TrustHigh,
		},
		{
			SourceID:   "src_desk_notes",
			GroupID:    "grp_apac",
			Name:       "APAC Desk Notes",
			Type:       models.SourceInternal,
			Region:     "APAC",
			Languages:  []string{"en"},
			TrustLevel: models.TrustMedium,
		},
	} {
		s := source
		if _, err := registry.Create(&s, "seed"); err != nil {
			// Re-running the seeder is fine; existing sources stay untouched
			logger.Warn().Err(err).Str("source_id", s.SourceID).Msg("Source already present, skipping")
			continue
		}
		logger.Info().Str("source_id", s.SourceID).Msg("Source seeded")
	}
	return nil
}

func seedDemoClient(g interfaces.GraphIndex, logger arbor.ILogger) error {
	client := &models.Client{
		ClientGUID:     "client_meridian",
		Name:           "Meridian Capital",
		ClientTypeCode: "HF",
		GroupID:        "grp_apac",
	}
	if err := g.UpsertClient(client); err != nil {
		return fmt.Errorf("client: %w", err)
	}

	for _, holding := range []models.Holding{
		{Ticker: "TRUCK", Weight: 0.15, Sentiment: models.SentimentLong},
		{Ticker: "005930.KS", Weight: 0.25, Sentiment: models.SentimentLong},
	} {
		if err := g.AddHolding(client.ClientGUID, holding); err != nil {
			return fmt.Errorf("holding %s: %w", holding.Ticker, err)
		}
	}
	if err := g.AddWatchItem(client.ClientGUID, models.WatchItem{Ticker: "BHP.AX"}); err != nil {
		return fmt.Errorf("watch item: %w", err)
	}

	esg := true
	profile := &models.ClientProfile{
		ClientGUID:      client.ClientGUID,
		MandateType:     "absolute_return",
		MandateText:     "Event-driven opportunities across APAC industrials and technology",
		MandateThemes:   []string{"ai_compute", "supply_chain"},
		Horizon:         models.HorizonMedium,
		ESGConstrained:  &esg,
		ImpactThreshold: 40,
		PrimaryContact:  "pm@meridian.example",
		AlertFrequency:  "daily",
	}
	if err := g.UpsertClientProfile(profile); err != nil {
		return fmt.Errorf("client profile: %w", err)
	}

	logger.Info().Str("client", client.Name).Msg("Demo client seeded")
	return nil
}
