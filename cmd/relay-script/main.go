package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"

	"github.com/relayhq/relay/internal/config"
	"github.com/relayhq/relay/internal/logging"
	"github.com/relayhq/relay/internal/netexec"
	"github.com/relayhq/relay/internal/script/engine"
	"github.com/relayhq/relay/internal/script/marshal"
	"github.com/relayhq/relay/internal/script/state"
	"github.com/relayhq/relay/internal/server"
)

// Scenario is the YAML context a script runs against
type Scenario struct {
	Phase       string             `yaml:"phase"`
	Request     *ScenarioRequest   `yaml:"request"`
	Response    *ScenarioResponse  `yaml:"response"`
	Environment *state.Environment `yaml:"environment"`
	Cookies     []state.Cookie     `yaml:"cookies"`
}

// ScenarioRequest is the request under edit
type ScenarioRequest struct {
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
}

// ScenarioResponse is the response under test
type ScenarioResponse struct {
	Status  int               `yaml:"status"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
}

func main() {
	scenarioPath := flag.String("scenario", "", "YAML scenario file with request/response/environment")
	serve := flag.Bool("serve", false, "Serve the engine over HTTP instead of running a script")
	flag.Parse()

	cfg := config.LoadOrDefault()
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *serve {
		runServer(cfg, logger)
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: relay-script [-scenario file.yaml] script.js")
		os.Exit(2)
	}
	if err := runScript(cfg, logger, *scenarioPath, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cfg *config.Config, logger *logging.Logger) {
	srv := server.NewServer(cfg, logger)
	addr := cfg.Server.Host + ":" + cfg.Server.Port

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run(addr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutting down")
	case err := <-errChan:
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func runScript(cfg *config.Config, logger *logging.Logger, scenarioPath, scriptPath string) error {
	source, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	scenario := &Scenario{}
	if scenarioPath != "" {
		data, err := os.ReadFile(scenarioPath)
		if err != nil {
			return fmt.Errorf("reading scenario: %w", err)
		}
		if err := yaml.Unmarshal(data, scenario); err != nil {
			return fmt.Errorf("parsing scenario: %w", err)
		}
	}

	executor := netexec.New(cfg.HTTP, logger)
	eng := engine.New(cfg.Engine, logger, nil)

	inv := engine.Invocation{
		Source:      string(source),
		Phase:       scenario.Phase,
		Environment: scenario.Environment,
		Cookies:     scenario.Cookies,
		Executor:    executor.Do,
	}
	if scenario.Request != nil {
		desc := &marshal.RequestDescriptor{
			Method: scenario.Request.Method,
			URL:    scenario.Request.URL,
		}
		for name, value := range scenario.Request.Headers {
			desc.SetHeader(name, value)
		}
		if scenario.Request.Body != "" {
			desc.Body = marshal.BodyPayload{
				Kind:      marshal.BodyText,
				Content:   []byte(scenario.Request.Body),
				MediaType: "text/plain",
			}
		}
		inv.Request = desc
	}
	if scenario.Response != nil {
		raw := &marshal.RawResponse{
			StatusCode: scenario.Response.Status,
			Body:       io.NopCloser(strings.NewReader(scenario.Response.Body)),
		}
		for name, value := range scenario.Response.Headers {
			raw.Headers = append(raw.Headers, state.Header{Name: name, Value: value})
		}
		inv.Response = raw
	}

	result, runErr := eng.Run(context.Background(), inv)
	if runErr != nil {
		var failure *state.ScriptFailure
		if errors.As(runErr, &failure) {
			out, _ := sonic.MarshalIndent(failure, "", "  ")
			fmt.Println(string(out))
			return fmt.Errorf("run failed: %s", failure.Kind)
		}
		return runErr
	}

	out, err := sonic.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
