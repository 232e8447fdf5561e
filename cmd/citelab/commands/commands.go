package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	citationlab "github.com/FHSS-Web-Team/citation-lab"
	"github.com/FHSS-Web-Team/citation-lab/cmd/citelab/internal/config"
)

// readSource takes the template source from the first argument, or from
// stdin when no argument is given.
func readSource(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read source from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// Parse parses a template source and prints its part tree as JSON.
func Parse(args []string) error {
	source, err := readSource(args)
	if err != nil {
		return err
	}

	tmpl := citationlab.Parse(source)
	out := struct {
		Parts     []citationlab.Part `json:"parts"`
		Variables []string           `json:"variables"`
	}{
		Parts:     tmpl.Parts(),
		Variables: tmpl.Variables(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Compile parses a template source and prints its compiled renderer form.
func Compile(args []string) error {
	source, err := readSource(args)
	if err != nil {
		return err
	}

	fmt.Println(citationlab.Parse(source).Compile())
	return nil
}

// Preview parses a template source and prints the rendered output for
// every subset of its variables, sample values standing in for real data.
func Preview(args []string) error {
	source, err := readSource(args)
	if err != nil {
		return err
	}

	tmpl := citationlab.Parse(source)
	vars := tmpl.Variables()
	rows := tmpl.Preview(PlainRenderer{}, nil, nil)

	for _, row := range rows {
		if row.Advisory {
			fmt.Println(row.Output)
			continue
		}

		var present []string
		for i, p := range row.Present {
			if p && i < len(vars) {
				present = append(present, vars[i])
			}
		}
		fmt.Printf("%-40s %s\n", strings.Join(present, ", "), row.Output)
	}
	return nil
}

// Serve hosts the editing surface endpoint described by cfg.
func Serve(args []string, cfg *config.Config) error {
	addr := cfg.Addr
	if len(args) > 0 {
		addr = args[0]
	}

	opts := []citationlab.WorkbenchOption{
		citationlab.WithMaxSessions(cfg.MaxSessions),
		citationlab.WithSessionTTL(time.Duration(cfg.SessionTTLMinutes) * time.Minute),
		citationlab.WithMaxMemoryKB(cfg.MaxMemoryKB),
		citationlab.WithMetricsEnabled(cfg.MetricsEnabled),
	}

	wb, err := citationlab.NewWorkbench(opts...)
	if err != nil {
		return fmt.Errorf("failed to create workbench: %w", err)
	}
	defer wb.Close()

	// Expired sessions are reaped in the background so a long-running
	// server does not pin memory for abandoned editors.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := wb.CleanupExpiredSessions(); n > 0 {
					log.Printf("reaped %d expired sessions", n)
				}
			case <-stop:
				return
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/live", citationlab.Mount(wb,
		citationlab.WithRenderer(PlainRenderer{}),
		citationlab.WithInitialText(cfg.InitialText),
	))
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(wb.Metrics()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	log.Printf("citelab listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
