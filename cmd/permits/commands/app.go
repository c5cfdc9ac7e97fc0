package commands

import (
	"rrcpermits-backend/internal/components/browser"
	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/internal/config"
	"rrcpermits-backend/internal/scrapers/neudocs"
	"rrcpermits-backend/internal/scrapers/rrc"
)

// scrapers builds the search and retrieval stages from the configuration.
func scrapers(cfg config.Config, tel telemetry.API) (rrc.Searcher, neudocs.Retriever) {
	launcher := browser.NewChromeLauncher(
		cfg.ChromeOptions(),
		telemetry.NewScopedAPI("browser", tel),
	)
	searcher := rrc.NewSearcher(
		launcher,
		cfg.SearcherOptions(),
		telemetry.NewScopedAPI("rrc", tel),
	)
	retriever := neudocs.NewRetriever(
		launcher,
		cfg.RetrieverOptions(),
		telemetry.NewScopedAPI("neudocs", tel),
	)
	return searcher, retriever
}
