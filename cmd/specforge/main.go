package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gliderlab/specforge/index"
	"github.com/gliderlab/specforge/pkg/config"
	"github.com/gliderlab/specforge/pkg/kv"
	"github.com/gliderlab/specforge/pkg/llm"
	"github.com/gliderlab/specforge/pkg/llm/factory"
	"github.com/gliderlab/specforge/prompts"
	"github.com/gliderlab/specforge/resource"
	"github.com/gliderlab/specforge/storage"
	"github.com/gliderlab/specforge/tools"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "generate":
		generateCmd(args)
	case "providers":
		providersCmd(args)
	case "search":
		searchCmd(args)
	case "resources":
		resourcesCmd(args)
	case "tools":
		toolsCmd(args)
	case "config":
		configCmd(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func generateCmd(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	output := fs.String("o", "spec.md", "Name of the spec file to write")
	configPath := fs.String("config", "", "Path to env.config")
	profilePath := fs.String("profile", "", "Path to the agent profile (YAML)")
	noCache := fs.Bool("no-cache", false, "Skip the result cache")
	fs.Parse(args)

	task := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if task == "" {
		fatalf("Usage: specforge generate [options] <task description>")
	}

	applyConfig(*configPath)
	if err := config.EnsureDataDirs(); err != nil {
		fatalf("Failed to prepare data dirs: %v", err)
	}
	if err := factory.InitProviders(); err != nil {
		fatalf("%v", err)
	}
	provider, err := factory.DefaultProvider()
	if err != nil {
		fatalf("%v", err)
	}

	store, err := storage.NewWithConfig(config.DefaultStorageConfig())
	if err != nil {
		fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	manager, err := resource.New(config.DefaultWorkspaceDir(), store)
	if err != nil {
		fatalf("Failed to open workspace: %v", err)
	}

	tool := &tools.WriteSpecTool{
		Provider:  provider,
		Resources: manager,
		ModelsCfg: loadModelsConfig(store),
	}

	if path := resolveProfilePath(*profilePath); path != "" {
		profile := prompts.LoadProfileOrDefault(path)
		tool.Goals = profile.Goals
	}

	if !*noCache {
		cache, err := kv.Open(kv.DefaultOptions(config.DefaultCacheDir()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Result cache unavailable: %v\n", err)
		} else {
			defer cache.Close()
			tool.Cache = cache
		}
	}

	if idx := openIndex(); idx != nil {
		defer idx.Close()
		tool.Index = idx
	}

	registry := newRegistry(tool, &tools.ReadTool{Resources: manager}, &tools.WriteTool{Resources: manager})

	result, err := registry.CallTool("write_spec", map[string]interface{}{
		"task_description": task,
		"spec_file_name":   *output,
	})
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Println(result)
}

func providersCmd(args []string) {
	fs := flag.NewFlagSet("providers", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to env.config")
	fs.Parse(args)

	applyConfig(*configPath)
	if err := factory.InitProviders(); err != nil {
		fatalf("%v", err)
	}

	provider, err := factory.DefaultProvider()
	if err != nil {
		fatalf("%v", err)
	}
	cfg := provider.GetConfig()
	window := llm.GetContextWindow(cfg.Type, cfg.Model, cfg.BaseURL, cfg.APIKey, llm.ModelsConfig{})
	fmt.Printf("Default: %s (model: %s, context window: %d)\n", provider.Name(), cfg.Model, window)
}

func searchCmd(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to env.config")
	limit := fs.Int("k", 5, "Number of results")
	fs.Parse(args)

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fatalf("Usage: specforge search [options] <query>")
	}

	applyConfig(*configPath)
	if err := config.EnsureDataDirs(); err != nil {
		fatalf("Failed to prepare data dirs: %v", err)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		fatalf("Search needs OPENAI_API_KEY for embeddings")
	}
	embedding, err := index.NewOpenAIProvider(apiKey, "")
	if err != nil {
		fatalf("%v", err)
	}
	idx, err := index.New(indexDBPath(), embedding)
	if err != nil {
		fatalf("Failed to open index: %v", err)
	}
	defer idx.Close()

	results, err := idx.Search(query, *limit)
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if len(results) == 0 {
		fmt.Println("No matching specs")
		return
	}
	for _, r := range results {
		fmt.Printf("%.3f  %s\n      %s\n", r.Score, r.Entry.Name, r.Entry.Task)
	}
}

func resourcesCmd(args []string) {
	fs := flag.NewFlagSet("resources", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to env.config")
	fs.Parse(args)

	applyConfig(*configPath)
	if err := config.EnsureDataDirs(); err != nil {
		fatalf("Failed to prepare data dirs: %v", err)
	}

	store, err := storage.NewWithConfig(config.DefaultStorageConfig())
	if err != nil {
		fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	resources, err := store.ListResources()
	if err != nil {
		fatalf("Failed to list resources: %v", err)
	}
	if len(resources) == 0 {
		fmt.Println("No resources recorded")
		return
	}
	for _, r := range resources {
		fmt.Printf("%-30s %8d bytes  %s  %s\n", r.Name, r.Size, r.Tool, r.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func toolsCmd(args []string) {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to env.config")
	fs.Parse(args)

	applyConfig(*configPath)

	registry := newRegistry(&tools.WriteSpecTool{}, &tools.ReadTool{}, &tools.WriteTool{})
	allowed := registry.GetAllowedTools()
	sort.Strings(allowed)
	for _, name := range allowed {
		t, _ := registry.Get(name)
		fmt.Printf("%-12s %s\n", name, t.Description())
	}
}

func configCmd(args []string) {
	if len(args) < 1 {
		fatalf("Usage: specforge config <set|get|unset|list> ...")
	}

	applyConfig("")
	if err := config.EnsureDataDirs(); err != nil {
		fatalf("Failed to prepare data dirs: %v", err)
	}
	store, err := storage.NewWithConfig(config.DefaultStorageConfig())
	if err != nil {
		fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	switch args[0] {
	case "set":
		if len(args) != 4 {
			fatalf("Usage: specforge config set <section> <key> <value>")
		}
		if err := store.SetConfig(args[1], args[2], args[3]); err != nil {
			fatalf("Failed to set config: %v", err)
		}
	case "get":
		if len(args) != 3 {
			fatalf("Usage: specforge config get <section> <key>")
		}
		value, err := store.GetConfig(args[1], args[2])
		if err != nil {
			fatalf("Failed to get config: %v", err)
		}
		fmt.Println(value)
	case "unset":
		if len(args) != 3 {
			fatalf("Usage: specforge config unset <section> <key>")
		}
		if err := store.DeleteConfig(args[1], args[2]); err != nil {
			fatalf("Failed to unset config: %v", err)
		}
	case "list":
		if len(args) != 2 {
			fatalf("Usage: specforge config list <section>")
		}
		section, err := store.GetConfigSection(args[1])
		if err != nil {
			fatalf("Failed to list config: %v", err)
		}
		keys := make([]string, 0, len(section))
		for k := range section {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s=%s\n", k, section[k])
		}
	default:
		fatalf("Unknown config action: %s", args[0])
	}
}

// newRegistry registers the tools and applies the deny list from
// SPECFORGE_DENY_TOOLS (comma-separated tool or group names)
func newRegistry(toolset ...tools.Tool) *tools.Registry {
	registry := tools.NewRegistry()
	for _, t := range toolset {
		registry.Register(t)
	}
	if deny := os.Getenv("SPECFORGE_DENY_TOOLS"); deny != "" {
		policy := tools.DefaultToolsPolicy()
		policy.Deny = strings.Split(deny, ",")
		registry.SetPolicy(policy)
	}
	return registry
}

func applyConfig(path string) {
	if path == "" {
		path = config.DefaultEnvConfigPath()
	}
	config.ApplyEnvConfig(path)
}

func resolveProfilePath(path string) string {
	if path != "" {
		return path
	}
	if p := config.DefaultProfilePath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// loadModelsConfig reads context window overrides from the "models" config
// section, where each value is the window size in tokens
func loadModelsConfig(store *storage.Storage) llm.ModelsConfig {
	cfg := llm.ModelsConfig{Models: map[string]llm.ModelConfig{}}
	section, err := store.GetConfigSection("models")
	if err != nil {
		return cfg
	}
	for model, value := range section {
		if window, err := strconv.Atoi(value); err == nil && window > 0 {
			cfg.Models[model] = llm.ModelConfig{ContextWindow: window}
		}
	}
	return cfg
}

// openIndex wires the similarity index when embeddings are available
func openIndex() *index.Index {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil
	}
	embedding, err := index.NewOpenAIProvider(apiKey, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Spec index unavailable: %v\n", err)
		return nil
	}
	idx, err := index.New(indexDBPath(), embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Spec index unavailable: %v\n", err)
		return nil
	}
	return idx
}

func indexDBPath() string {
	return filepath.Join(config.DefaultDataDir(), "index.db")
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Usage: specforge <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  generate    Draft a program spec and save it to the workspace")
	fmt.Println("  providers   Show the active LLM provider")
	fmt.Println("  search      Find previously generated specs by similarity")
	fmt.Println("  resources   List files produced by tools")
	fmt.Println("  tools       List tools allowed by the current policy")
	fmt.Println("  config      Manage config sections (set, get, unset, list)")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  --config <path>    Path to env.config")
	fmt.Println("  --profile <path>   Agent profile with goals (generate only)")
	fmt.Println("  -o <name>          Spec file name (generate only)")
	fmt.Println("  --no-cache         Skip the result cache (generate only)")
}
