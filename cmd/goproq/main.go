package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gyunamister/goproq/internal/apperr"
	"github.com/gyunamister/goproq/internal/convert"
	"github.com/gyunamister/goproq/internal/drive"
	"github.com/gyunamister/goproq/internal/index"
	"github.com/gyunamister/goproq/internal/model"
	"github.com/gyunamister/goproq/internal/query"
)

func main() {
	var queryPath string
	var diagramPath string
	var interactive bool
	var help bool
	var live bool
	var metadata bool
	var strict bool
	var workers int
	var timeout time.Duration
	var name string

	flag.StringVar(&queryPath, "query", "", "path to a legacy query record JSON file")
	flag.StringVar(&diagramPath, "diagram", "", "path to a graphical query diagram JSON file")
	flag.BoolVar(&interactive, "i", false, "interactive mode: read legacy query JSON lines from stdin")
	flag.BoolVar(&help, "h", false, "show help")
	flag.BoolVar(&live, "live", false, "live mode: stop at the first matching execution")
	flag.BoolVar(&metadata, "metadata", false, "print the log's activity/object-type/statistics summary and exit")
	flag.BoolVar(&strict, "strict", false, "reject unresolved activity/object type names instead of letting them pass through unmatched")
	flag.IntVar(&workers, "workers", 0, "full mode worker count (0 = NumCPU)")
	flag.DurationVar(&timeout, "timeout", drive.DefaultLiveTimeout, "live mode wall-clock budget")
	flag.StringVar(&name, "name", "", "run name echoed in the result")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "An object-centric process querying engine.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                          run the built-in demo log\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -query q.json            run a single legacy query\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -diagram d.json -live    run a diagram query, stop at first match\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i                       interactive mode\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	src := buildDemoSource()
	logIndex, err := index.Build(src)
	if err != nil {
		log.Fatalf("building log index: %v", err)
	}

	copts := convert.Options{
		Strict:   strict,
		Resolver: logResolver{logIndex},
		Warn:     func(msg string) { log.Printf("convert: %s", msg) },
	}
	dopts := drive.Options{Live: live, Timeout: timeout, Workers: workers, Name: name}

	if metadata {
		printMetadata(logIndex)
		return
	}

	switch {
	case queryPath != "":
		runOne(logIndex, loadLegacy(queryPath), copts, dopts)
	case diagramPath != "":
		runDiagramQuery(logIndex, loadDiagram(diagramPath), copts, dopts)
	case interactive:
		runInteractive(logIndex, copts, dopts)
	default:
		runDemo(logIndex, copts, dopts)
	}
}

// logResolver answers strict-mode name checks against the loaded log.
type logResolver struct{ l *index.Log }

func (r logResolver) KnownActivity(a model.Activity) bool { return len(r.l.ActivityEvents(a)) > 0 }

func (r logResolver) KnownObjectType(ot model.ObjectType) bool {
	for _, t := range r.l.ObjectTypes() {
		if t == ot {
			return true
		}
	}
	return false
}

func loadLegacy(path string) map[string]interface{} {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading %s: %v", path, err)
	}
	var rec map[string]interface{}
	if err := json.Unmarshal(b, &rec); err != nil {
		log.Fatalf("parsing %s: %v", path, err)
	}
	return rec
}

func loadDiagram(path string) convert.Diagram {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading %s: %v", path, err)
	}
	var d convert.Diagram
	if err := json.Unmarshal(b, &d); err != nil {
		log.Fatalf("parsing %s: %v", path, err)
	}
	return d
}

func runOne(logIndex *index.Log, rec map[string]interface{}, copts convert.Options, dopts drive.Options) {
	q, err := convert.ConvertLegacy(rec, copts)
	if err != nil {
		fail(err)
	}
	execute(logIndex, q, dopts)
}

func runDiagramQuery(logIndex *index.Log, d convert.Diagram, copts convert.Options, dopts drive.Options) {
	q, err := convert.ConvertDiagram(d, copts)
	if err != nil {
		fail(err)
	}
	execute(logIndex, q, dopts)
}

func runInteractive(logIndex *index.Log, copts convert.Options, dopts drive.Options) {
	fmt.Println("goproq interactive mode. One legacy query JSON record per line, Ctrl-D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
			continue
		}
		q, err := convert.ConvertLegacy(rec, copts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "conversion error: %v\n", err)
			continue
		}
		res, err := drive.Execute(q, logIndex, dopts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "eval error: %v\n", err)
			continue
		}
		drive.PrintSummary(res)
		fmt.Println(drive.NewTableFormatter().FormatResult(res))
	}
}

// runDemo executes one canned query against the built-in demo log: orders
// that reached "Ship". Illustrates the engine end to end with no input
// files required.
func runDemo(logIndex *index.Log, copts convert.Options, dopts drive.Options) {
	fmt.Println("=== goproq demo ===")
	q := query.ActivityQuery{
		Object:   query.ObjectComponent{ObjectType: "order"},
		Activity: query.ActivityComponent{Activities: []model.Activity{"Ship"}, Kind: query.ActivityEnd},
	}
	dopts.Name = "shipped orders"
	execute(logIndex, q, dopts)
}

func execute(logIndex *index.Log, q query.Query, dopts drive.Options) {
	res, err := drive.Execute(q, logIndex, dopts)
	if err != nil {
		fail(err)
	}
	drive.PrintSummary(res)
	fmt.Println(drive.NewTableFormatter().FormatResult(res))
}

// printMetadata prints the ocel_metadata summary (spec.md §4.D expansion 5)
// for the graphical query builder's use.
func printMetadata(logIndex *index.Log) {
	md := index.Summary(logIndex)
	fmt.Printf("Activities (%d): %v\n", len(md.Activities), md.Activities)
	fmt.Printf("Object types (%d): %v\n", len(md.ObjectTypes), md.ObjectTypes)
	fmt.Printf("Statistics: events=%d objects=%d process_executions=%d\n",
		md.Stats.TotalEvents, md.Stats.TotalObjects, md.Stats.TotalProcessExecutions)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(apperr.ExitCode(err))
}
