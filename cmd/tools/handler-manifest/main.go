// Command handler-manifest writes or checks the JSON list of handlers and
// their routes.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"session-handlers/internal/app"
	"session-handlers/internal/common/config"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/handlers/routes"
	"session-handlers/internal/store/kv"
	"session-handlers/internal/store/relational"
	"session-handlers/pkg/registry"
)

const defaultPath = "configs/handlers.json"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		help(out)
		return fmt.Errorf("missing command")
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	path := fs.String("path", defaultPath, "Path to the manifest file")
	version := fs.String("version", "dev", "Version recorded in the manifest")

	switch args[0] {
	case "write":
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		m, err := build(*version)
		if err != nil {
			return err
		}
		if err := save(m, *path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d handlers to %s\n", len(m.Handlers), *path)
		return nil

	case "check":
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		onDisk, err := registry.LoadManifest(*path)
		if err != nil {
			return fmt.Errorf("failed to load manifest: %w", err)
		}
		current, err := build(onDisk.Version)
		if err != nil {
			return err
		}
		if diff := registry.Diff(current, *onDisk); len(diff) > 0 {
			for _, d := range diff {
				fmt.Fprintln(out, d)
			}
			return fmt.Errorf("manifest %s is out of date", *path)
		}
		fmt.Fprintf(out, "Manifest matches. Found %d handlers.\n", len(current.Handlers))
		return nil

	default:
		help(out)
		return nil
	}
}

// build registers every handler over unconnected stores. Constructors only
// store their dependencies, so nothing is dialed.
func build(version string) (registry.Manifest, error) {
	log := logger.NewNoOpLogger()
	a := app.Assemble(&config.Config{}, log, app.Deps{
		KV:         kv.NewRedisStore(nil, "", log),
		Relational: relational.New(nil, log),
	})
	reg, err := routes.Build(a)
	if err != nil {
		return registry.Manifest{}, err
	}
	return reg.Manifest(version), nil
}

func save(m registry.Manifest, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	defer f.Close()
	return registry.WriteManifest(f, m)
}

func help(out io.Writer) {
	fmt.Fprintln(out, `
Usage: handler-manifest <command> [flags]

Commands:
  write   Write the manifest of registered handlers
  check   Fail when the manifest differs from the registered handlers
  help    Show this help message

Examples:
  handler-manifest write -path configs/handlers.json -version 1.2.0
  handler-manifest check -path configs/handlers.json`)
}
