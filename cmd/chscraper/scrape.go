package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/auth"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/companieshouse"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/config"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/downloader"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/logger"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/scraper"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/storage"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/ui"
)

var (
	companiesFile string
	outputDir     string
	dryRun        bool
	resumeRun     bool
	forceRun      bool
	typesFilter   string
	maxRequests   int
	itemsPerPage  int
	maxFileSizeMB int
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape [company_numbers...]",
	Short: "Download data and documents for one or more companies",
	Long: `Download all structured data and filing documents for the given
companies. Company numbers are normalized automatically: short numeric
numbers are zero-padded to 8 digits (6 becomes 00000006).

Existing valid files are skipped by default (smart resume). Use --force
to re-download everything.

The API key is resolved from, in order: stored credentials
('chscraper auth login'), the COMPANIES_HOUSE_API_KEY environment
variable, or the config file.`,
	Example: `  # Single company (skips existing files)
  chscraper scrape 00000006

  # Multiple companies
  chscraper scrape 00000006 00000007 SC123456

  # From file, one number per line (# comments allowed)
  chscraper scrape --file companies.txt

  # Only accounts and confirmation statements
  chscraper scrape 00000006 --types accounts,confirmations

  # Preview without downloading
  chscraper scrape 00000006 --dry-run`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&companiesFile, "file", "f", "", "file containing company numbers (one per line)")
	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: ./downloads)")
	scrapeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview what would be downloaded without downloading")
	scrapeCmd.Flags().BoolVar(&resumeRun, "resume", false, "validate and reuse a previous download progress record")
	scrapeCmd.Flags().BoolVar(&forceRun, "force", false, "force re-download even if files already exist")
	scrapeCmd.Flags().StringVar(&typesFilter, "types", "", "filter document categories (comma-separated: accounts,confirmations,...)")
	scrapeCmd.Flags().IntVar(&maxRequests, "max-requests", 0, "rate limit ceiling (default: 600 per 5 minutes)")
	scrapeCmd.Flags().IntVar(&itemsPerPage, "items-per-page", 0, "pagination page size (default: 100)")
	scrapeCmd.Flags().IntVar(&maxFileSizeMB, "max-file-size", 0, "maximum document size in MB (default: 50)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	term := ui.NewTerminal(quiet)

	companies, err := gatherCompanies(args)
	if err != nil {
		return err
	}
	if len(companies) == 0 {
		return fmt.Errorf("no company numbers provided: pass them as arguments or use --file")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.API.Key == "" {
		cfg.API.Key = storedAPIKey()
	}
	if cfg.API.Key == "" {
		return fmt.Errorf("no API key found: run 'chscraper auth login' or set COMPANIES_HOUSE_API_KEY")
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	client, err := companieshouse.NewClient(cfg, log)
	if err != nil {
		return err
	}

	archive := storage.NewArchive(cfg.Output.BaseDirectory, log)
	dl := downloader.NewDownloader(client, cfg, log)
	s := scraper.New(client, dl, archive, log)

	opts := scraper.Options{
		Force:  forceRun,
		DryRun: dryRun,
		Resume: resumeRun,
	}
	if typesFilter != "" {
		for _, category := range strings.Split(typesFilter, ",") {
			opts.Types = append(opts.Types, strings.TrimSpace(category))
		}
	}

	term.Info("Processing %d companies", len(companies))
	results := s.ScrapeAll(companies, opts)

	var failed int
	for _, result := range results {
		switch result.Status {
		case scraper.StatusSuccess:
			term.Success("%s: downloaded %d, skipped %d, failed %d (%.1fs)",
				result.CompanyNumber, result.Stats.Success, result.Stats.Skipped,
				result.Stats.Failed, result.Elapsed.Seconds())
		case scraper.StatusDryRun:
			term.Info("%s: %d documents would be downloaded", result.CompanyNumber, result.TotalDocuments)
		case scraper.StatusError:
			failed++
			term.Error("%s: %s", result.CompanyNumber, result.Error)
		}
	}

	if failed == len(results) {
		return fmt.Errorf("all %d companies failed", failed)
	}
	return nil
}

// gatherCompanies merges company numbers from --file and positional args
func gatherCompanies(args []string) ([]string, error) {
	var companies []string

	if companiesFile != "" {
		fromFile, err := readCompaniesFromFile(companiesFile)
		if err != nil {
			return nil, err
		}
		companies = append(companies, fromFile...)
	}
	companies = append(companies, args...)

	return companies, nil
}

// readCompaniesFromFile reads company numbers one per line, skipping
// blank lines and # comments.
func readCompaniesFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read companies file: %w", err)
	}
	defer f.Close()

	var companies []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		companies = append(companies, line)
	}
	return companies, s.Err()
}

// loadConfig builds the effective configuration from defaults, config
// file, environment and command line flags.
func loadConfig() (*config.Config, error) {
	// --log-level wins over --verbose when both are given.
	if verbose && logLevel == "" {
		logLevel = "debug"
	}

	flags := map[string]interface{}{
		"output":         outputDir,
		"max-requests":   maxRequests,
		"items-per-page": itemsPerPage,
		"max-file-size":  maxFileSizeMB,
		"log-level":      logLevel,
		"log-file":       logFile,
	}
	return config.Load(configFile, flags)
}

// storedAPIKey fetches the default stored credential, if any
func storedAPIKey() string {
	manager, err := auth.NewManager()
	if err != nil {
		return ""
	}
	credential, err := manager.Retrieve("")
	if err != nil {
		return ""
	}
	return credential.APIKey
}
