package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/vitrine/vitrine/internal/catalog"
	"github.com/vitrine/vitrine/internal/server"
	"github.com/vitrine/vitrine/internal/site"
	"github.com/vitrine/vitrine/internal/workflow"
	"github.com/vitrine/vitrine/pkg/models"
)

const usage = `Usage: vitrine <command> [flags]

Commands:
  serve     Serve the built site and template API (default)
  build     Assemble a deployable site directory from a template tree
  validate  Validate workflow JSON files
  repair    Auto-repair malformed workflow JSON files in place
  search    Search templates by keyword and category
  export    Export the template inventory as CSV and/or JSON
`

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}

	var code int
	switch command {
	case "serve":
		code = runServe(args, logger)
	case "build":
		code = runBuild(args, logger)
	case "validate":
		code = runValidate(args, logger)
	case "repair":
		code = runRepair(args, logger)
	case "search":
		code = runSearch(args, logger)
	case "export":
		code = runExport(args, logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		code = 2
	}
	os.Exit(code)
}

func runServe(args []string, logger *logrus.Logger) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", getEnv("VITRINE_CONFIG", ""), "Path to config.toml")
	fs.Parse(args)

	config, err := server.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	configureLogger(logger, config)

	srv, err := server.New(config, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Received shutdown signal")
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server shutdown complete")
	return 0
}

func runBuild(args []string, logger *logrus.Logger) int {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	root := fs.String("root", ".", "Template source tree")
	out := fs.String("out", "dist", "Output directory")
	fs.Parse(args)

	count, err := site.NewBuilder(*root, *out, logger).Build()
	if err != nil {
		logger.WithError(err).Error("Build failed")
		return 1
	}

	fmt.Printf("Built site with %d template(s) into %s\n", count, *out)
	return 0
}

func runValidate(args []string, logger *logrus.Logger) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	root := fs.String("root", ".", "Template tree to validate")
	strict := fs.Bool("strict", false, "Require name and type on every node")
	fs.Parse(args)

	records, err := catalog.NewScanner(*root, logger).Scan()
	if err != nil {
		logger.WithError(err).Error("Scan failed")
		return 1
	}

	var issues []workflow.Issue
	for _, rec := range records {
		fileIssues, err := workflow.ValidateFile(rec.AbsolutePath, *strict)
		if err != nil {
			issues = append(issues, workflow.Issue{Path: rec.RelativePath, Message: err.Error()})
			continue
		}
		for _, issue := range fileIssues {
			issue.Path = rec.RelativePath
			issues = append(issues, issue)
		}
	}

	if len(issues) > 0 {
		for _, issue := range issues {
			fmt.Printf("ERROR: %s\n", issue)
		}
		fmt.Printf("\nFound %d validation error(s) across %d file(s).\n", len(issues), len(records))
		return 1
	}

	fmt.Printf("All %d JSON files are valid.\n", len(records))
	return 0
}

func runRepair(args []string, logger *logrus.Logger) int {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	fs.Parse(args)

	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: vitrine repair <files...>")
		return 2
	}

	code := 0
	for _, path := range files {
		fixed, err := workflow.RepairFile(path)
		switch {
		case err == workflow.ErrUnrepairable:
			fmt.Printf("NOFIX: %s\n", path)
			code = 1
		case err != nil:
			fmt.Printf("FAIL: %s -> %v\n", path, err)
			code = 1
		case fixed:
			fmt.Printf("FIXED: %s\n", path)
		default:
			fmt.Printf("OK: %s\n", path)
		}
	}
	return code
}

func runSearch(args []string, logger *logrus.Logger) int {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	root := fs.String("root", ".", "Template tree to search")
	query := fs.String("q", "", "Space-separated keywords (case-insensitive, all must match)")
	var categories stringList
	fs.Var(&categories, "c", "Restrict search to a category (repeatable)")
	limit := fs.Int("n", catalog.DefaultSearchLimit, "Maximum number of results")
	pathsOnly := fs.Bool("paths-only", false, "Print only absolute file paths")
	filenames := fs.Bool("filenames", false, "Search only filenames and titles, skip content")
	fs.Parse(args)

	keywords := strings.Fields(*query)
	if len(keywords) == 0 {
		fmt.Fprintln(os.Stderr, "Please provide at least one keyword with -q.")
		return 2
	}

	records, err := catalog.NewScanner(*root, logger).Scan()
	if err != nil {
		logger.WithError(err).Error("Scan failed")
		return 1
	}

	recs := make([]*models.TemplateRecord, len(records))
	for i := range records {
		recs[i] = &records[i]
	}

	hits := catalog.SearchRecords(recs, catalog.SearchOptions{
		Keywords:      keywords,
		Categories:    categories,
		Limit:         *limit,
		FilenamesOnly: *filenames,
	})
	if len(hits) == 0 {
		fmt.Fprintln(os.Stderr, "No results found.")
		return 1
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].RelativePath < hits[j].RelativePath })
	for _, hit := range hits {
		if *pathsOnly {
			fmt.Println(hit.AbsolutePath)
			continue
		}
		nodesInfo := ""
		if hit.NodesCount != nil {
			nodesInfo = fmt.Sprintf(" | nodes=%d", *hit.NodesCount)
		}
		fmt.Printf("%s | %s | category=%s%s | matched=%s | mtime=%s\n",
			hit.RelativePath, hit.Title, hit.Category, nodesInfo,
			strings.Join(hit.Matched, ","), hit.ModifiedISO)
	}
	return 0
}

func runExport(args []string, logger *logrus.Logger) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	root := fs.String("root", ".", "Template tree to index")
	csvPath := fs.String("csv", "", "Path to write CSV output")
	jsonPath := fs.String("json", "", "Path to write JSON output")
	fs.Parse(args)

	if *csvPath == "" && *jsonPath == "" {
		fmt.Fprintln(os.Stderr, "Please provide at least one of -csv or -json output paths.")
		return 2
	}

	records, err := catalog.NewScanner(*root, logger).Scan()
	if err != nil {
		logger.WithError(err).Error("Scan failed")
		return 1
	}

	if *csvPath != "" {
		if err := site.WriteCSVIndex(records, *csvPath); err != nil {
			logger.WithError(err).Error("CSV export failed")
			return 1
		}
		fmt.Printf("Wrote CSV: %s (%d records)\n", *csvPath, len(records))
	}
	if *jsonPath != "" {
		if err := site.WriteJSONIndex(records, *jsonPath); err != nil {
			logger.WithError(err).Error("JSON export failed")
			return 1
		}
		fmt.Printf("Wrote JSON: %s (%d records)\n", *jsonPath, len(records))
	}
	return 0
}

func configureLogger(logger *logrus.Logger, config *server.Config) {
	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}
