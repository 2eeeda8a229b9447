package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/theimaginaryfoundation/alt-text-updater/internal/logging"
	"github.com/theimaginaryfoundation/alt-text-updater/migration"
	"github.com/theimaginaryfoundation/alt-text-updater/migration/fileutils"
	"github.com/theimaginaryfoundation/alt-text-updater/migration/provider"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	log, err := logging.Setup("alt-text-suggester", logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if !cfg.Overwrite && fileutils.FileExists(cfg.OutPath) {
		fmt.Fprintf(os.Stderr, "output already exists: %s (pass -overwrite)\n", cfg.OutPath)
		os.Exit(2)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key)")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := migration.LoadMapping(cfg.CSVPath)
	if errors.Is(err, migration.ErrMappingNotFound) {
		// Without a mapping every image is unmatched.
		log.Warn("mapping CSV not found, treating all images as unmatched", "csv", cfg.CSVPath)
		m, err = migration.NewMapping(), nil
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	jsonRoot := cfg.JSONRoot
	if jsonRoot == "" {
		jsonRoot = filepath.Join(cfg.BaseDir, migration.DefaultJSONDirName)
	}
	files, err := migration.CollectJSONFiles(jsonRoot, filepath.Join(cfg.BaseDir, migration.DefaultBackupDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	suggester := openAIAltSuggester{
		client: &client,
		model:  cfg.Model,
	}

	suggestions, err := migration.SuggestAltText(ctx, files, m, suggester, migration.SuggestOptions{
		BatchSize: cfg.BatchSize,
		MaxImages: cfg.MaxImages,
		Logger:    log,
	})
	if err != nil {
		// Keep what was already suggested before failing.
		log.Error("suggestion run failed", "err", err, "accepted", len(suggestions))
		if len(suggestions) == 0 {
			os.Exit(1)
		}
	}

	if err := migration.WriteSuggestionsCSV(cfg.OutPath, suggestions); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "files_scanned=%d suggestions=%d out=%s\n", len(files), len(suggestions), cfg.OutPath)
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.BaseDir, "dir", cfg.BaseDir, "Working folder holding the CSV and jsonFiles/")
	fs.StringVar(&cfg.CSVPath, "csv", "", "Mapping CSV; images it already covers are not sent (default: discovered in <dir>)")
	fs.StringVar(&cfg.JSONRoot, "json-root", "", "Folder of JSON documents (default: <dir>/jsonFiles)")
	fs.StringVar(&cfg.OutPath, "out", "", "Suggestions CSV to write (default: <dir>/alt-text-suggestions.csv)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model used to draft alt text")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Images per model request")
	fs.IntVar(&cfg.MaxImages, "max-images", cfg.MaxImages, "Limit number of images sent (0 = all)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite an existing suggestions CSV")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text|json")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExample:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/alt-text-suggester -dir AltTextUpdater -max-images 50")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.BaseDir = filepath.Clean(cfg.BaseDir)
	if cfg.CSVPath == "" {
		cfg.CSVPath = migration.FindCSV(cfg.BaseDir)
	}
	cfg.CSVPath = filepath.Clean(cfg.CSVPath)
	if cfg.JSONRoot != "" {
		cfg.JSONRoot = filepath.Clean(cfg.JSONRoot)
	}
	if cfg.OutPath == "" {
		cfg.OutPath = filepath.Join(cfg.BaseDir, migration.DefaultSuggestions)
	}
	cfg.OutPath = filepath.Clean(cfg.OutPath)
	return cfg, nil
}

type openAIAltSuggester struct {
	client *openai.Client
	model  string
}

type suggestRequest struct {
	Images []suggestImage `json:"images"`
}

type suggestImage struct {
	Src     string `json:"src"`
	Shape   string `json:"shape"`
	Context string `json:"context,omitempty"`
}

type suggestResponse struct {
	Suggestions []migration.AltSuggestion `json:"suggestions"`
}

var suggestSchema = provider.GenerateSchema[suggestResponse]()

func buildSuggestRequest(images []migration.UnmatchedImage) suggestRequest {
	req := suggestRequest{Images: make([]suggestImage, 0, len(images))}
	for _, img := range images {
		req.Images = append(req.Images, suggestImage{
			Src:     img.Src,
			Shape:   img.Shape,
			Context: fileutils.Truncate(img.Context, 300),
		})
	}
	return req
}

func (s openAIAltSuggester) SuggestAltText(ctx context.Context, images []migration.UnmatchedImage) ([]migration.AltSuggestion, error) {
	if s.client == nil {
		return nil, errors.New("openAIAltSuggester: client is nil")
	}
	if s.model == "" {
		return nil, errors.New("openAIAltSuggester: model is empty")
	}
	if len(images) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(buildSuggestRequest(images))
	if err != nil {
		return nil, err
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "AltTextSuggestions",
			Schema:      suggestSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Alt text suggestions JSON"),
			Type:        "json_schema",
		},
	}

	input := []responses.ResponseInputItemUnionParam{
		responses.ResponseInputItemParamOfMessage(string(payload), responses.EasyInputMessageRoleUser),
	}
	params := responses.ResponseNewParams{
		Model:           s.model,
		MaxOutputTokens: openai.Int(int64(200 + 80*len(images))),
		Instructions:    openai.String(suggestAltPrompt),
		ServiceTier:     responses.ResponseNewParamsServiceTierFlex,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := provider.CallWithRetry(ctx, s.client, params)
	if err != nil {
		return nil, err
	}

	var out suggestResponse
	if err := fileutils.DecodeModelJSON(resp.OutputText(), &out); err != nil {
		return nil, fmt.Errorf("openAIAltSuggester: decode response: %w", err)
	}
	return out.Suggestions, nil
}
