package console

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"element-locator/internal/config"
	"element-locator/internal/dom"
	"element-locator/internal/entity"
	"element-locator/internal/usecase"
	"element-locator/pkg/apperr"
	"element-locator/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errExit = errors.New("exit requested")

type Interface struct {
	config     *config.Config
	logger     *zap.Logger
	usecase    *usecase.Service
	shutdowner fx.Shutdowner
	in         io.Reader
	out        io.Writer
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
}

type Params struct {
	fx.In

	Config     *config.Config
	Logger     *zap.Logger
	Usecase    *usecase.Service
	Shutdowner fx.Shutdowner `optional:"true"`
}

func NewInterface(params Params) *Interface {
	return newInterface(params, os.Stdin, os.Stdout)
}

func newInterface(params Params, in io.Reader, out io.Writer) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		config:     params.Config,
		logger:     params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase:    params.Usecase,
		shutdowner: params.Shutdowner,
		in:         in,
		out:        out,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start runs the read loop until input ends, exit is typed or Stop is called.
func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	scanner := bufio.NewScanner(i.in)

	for {
		if i.ctx.Err() != nil {
			return nil
		}

		fmt.Fprint(i.out, "\nlocator> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if errors.Is(err, errExit) {
				break
			}

			i.logger.Debug("Command failed", zap.String(logg.Operation, input), zap.Error(err))
			fmt.Fprintf(i.out, "Error: %s\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		i.logger.Error("Failed to read input", zap.Error(err))
	}

	fmt.Fprintln(i.out, "Goodbye!")

	if i.shutdowner != nil {
		return i.shutdowner.Shutdown()
	}

	return nil
}

func (i *Interface) Stop() error {
	i.stopOnce.Do(func() {
		i.cancel()
		i.usecase.Locator.Close()
	})

	return nil
}

func (i *Interface) handleCommand(input string) error {
	command, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(command) {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		return errExit
	case "load":
		return i.load(rest)
	case "open":
		return i.open(rest)
	case "pick":
		return i.pick(rest)
	case "point":
		return i.point(rest)
	case "find":
		return i.find()
	case "test":
		return i.test(rest)
	case "status":
		i.printStatus()

		return nil
	default:
		return apperr.InvalidReqError("handleCommand", "command", fmt.Errorf("unknown command %q, type help", command))
	}
}

func (i *Interface) load(path string) error {
	if err := i.usecase.Locator.LoadFile(i.ctx, path); err != nil {
		return err
	}

	fmt.Fprintf(i.out, "Loaded %s\n", path)

	return nil
}

func (i *Interface) open(url string) error {
	if url == "" {
		return apperr.InvalidReqError("open", "url", errors.New("usage: open <url>"))
	}

	if err := i.usecase.Locator.Open(i.ctx, url); err != nil {
		return err
	}

	fmt.Fprintf(i.out, "Opened %s\n", url)

	return nil
}

func (i *Interface) pick(selector string) error {
	if selector == "" {
		return apperr.InvalidReqError("pick", "selector", errors.New("usage: pick <css selector>"))
	}

	n, err := i.usecase.Locator.Pick(i.ctx, selector)
	if err != nil {
		return err
	}

	fmt.Fprintf(i.out, "Target: <%s>\n", dom.TagName(n))

	return nil
}

func (i *Interface) point(args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return apperr.InvalidReqError("point", "coordinates", errors.New("usage: point <x> <y>"))
	}

	x, errX := strconv.ParseFloat(fields[0], 64)
	y, errY := strconv.ParseFloat(fields[1], 64)
	if errX != nil || errY != nil {
		return apperr.InvalidReqError("point", "coordinates", errors.New("coordinates must be numbers"))
	}

	n, err := i.usecase.Locator.Point(i.ctx, x, y)
	if err != nil {
		return err
	}

	fmt.Fprintf(i.out, "Target: <%s>\n", dom.TagName(n))

	return nil
}

func (i *Interface) find() error {
	findings, err := i.usecase.Locator.FindLocators(i.ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(i.out)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	return encoder.Encode(findings)
}

func (i *Interface) test(args string) error {
	name, value, _ := strings.Cut(args, " ")
	value = strings.TrimSpace(value)

	strategy, err := entity.ParseStrategy(name)
	if err != nil {
		return apperr.InvalidReqError("test", "strategy", err)
	}

	if value == "" {
		return apperr.InvalidReqError("test", "value", errors.New("usage: test <strategy> <value>"))
	}

	outcome, err := i.usecase.Locator.TestLocator(i.ctx, strategy, value)

	switch outcome.Status {
	case entity.TestStatusFound:
		fmt.Fprintf(i.out, "Found <%s> at top=%.0f left=%.0f (%.0fx%.0f), highlighted for %s\n",
			dom.TagName(outcome.Node),
			outcome.Rect.Top, outcome.Rect.Left, outcome.Rect.Width, outcome.Rect.Height,
			i.config.LocatorConfig.VisibleFor)
	case entity.TestStatusIgnored:
		fmt.Fprintln(i.out, "A test is already running, ignored")
	default:
		fmt.Fprintf(i.out, "%s: %s\n", outcome.Status, outcome.Message)
	}

	switch outcome.Status {
	case entity.TestStatusNotFound, entity.TestStatusInvalidSelector, entity.TestStatusInvalidExpression:
		return nil
	default:
		return err
	}
}

func (i *Interface) printStatus() {
	doc, source := i.usecase.Locator.Document()
	if doc == nil {
		fmt.Fprintln(i.out, "No document loaded")
	} else {
		fmt.Fprintf(i.out, "Document: %s\n", source)
	}

	if target := i.usecase.Locator.Target(); target != nil {
		fmt.Fprintf(i.out, "Target: <%s>\n", dom.TagName(target))
	}

	if i.usecase.Browser != nil {
		fmt.Fprintf(i.out, "Browser ready: %t\n", i.usecase.Browser.IsReady())
	}
}

func (i *Interface) printBanner() {
	fmt.Fprintln(i.out, `
+-----------------------------------------------+
|               Element Locator                 |
|  Generate and test locators for page elements |
+-----------------------------------------------+`)
}

func (i *Interface) printHelp() {
	fmt.Fprintln(i.out, `
Available commands:
  load <file>               - Load an HTML file as the current document
  open <url>                - Navigate the browser and snapshot the page
  pick <css selector>       - Choose the target element
  point <x> <y>             - Choose the live element at viewport coordinates
  find                      - Generate locators for the target
  test <strategy> <value>   - Resolve a locator and highlight the match
                              strategies: css, xpath, classname, linktext,
                              partiallinktext, tagname
  status                    - Show the current document and target
  help, h                   - Show this help message
  exit, quit, q             - Exit the application`)
}
