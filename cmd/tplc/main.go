package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vcrobe/tplc/console"
	"github.com/vcrobe/tplc/project"
)

func main() {
	// --- CLI Flags ---
	// The '-in' flag specifies the source directory to scan for templates.
	inDir := flag.String("in", ".", "The source directory to scan for template files.")
	// The '-out' flag collects every report in one directory instead of next to its template.
	outDir := flag.String("out", "", "Directory for the compilation reports (default: next to each template)")
	configFile := flag.String("config", "", "Configuration file (default: "+project.DefaultConfigFile+" if present)")
	scopeFile := flag.String("scope", "", "YAML file with sample data used to preview binding values")
	// The '-dev' flag enables development mode (verbose output).
	devMode := flag.Bool("dev", false, "Enable development mode (verbose output)")
	watch := flag.Bool("watch", false, "Rebuild templates when they or their manifests change")
	flag.Parse()

	path, required := *configFile, true
	if path == "" {
		path, required = project.DefaultConfigFile, false
	}
	cfg, err := project.LoadConfig(path, required)
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	// Flags given on the command line win over the configuration file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.In = *inDir
		case "out":
			cfg.Out = *outDir
		case "scope":
			cfg.Scope = *scopeFile
		case "dev":
			cfg.Dev = *devMode
		}
	})
	console.SetDev(cfg.Dev)

	builder, err := project.NewBuilder(cfg)
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}

	fmt.Printf("Starting compilation...\nSource directory: %s\n", cfg.In)
	if console.Dev() {
		fmt.Printf("Development mode: ENABLED\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		err := builder.Watch(ctx, func(r *project.Report, err error) {
			if err != nil {
				console.Error(err)
				return
			}
			console.Logf("compiled %s -> %s", r.Template, r.Output)
		})
		if err != nil {
			log.Fatalf("Watch failed: %v", err)
		}
		return
	}

	reports, err := builder.Build(ctx)
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}
	for _, r := range reports {
		console.Debug("%s -> %s", r.Template, r.Output)
	}

	// Success! Let the user know.
	fmt.Printf("🎉 Compiled %d template(s) successfully!\n", len(reports))
}
