package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/justsurfingit/jobapp-ai/internal/client"
	"github.com/justsurfingit/jobapp-ai/internal/reconciler"
)

const defaultServer = "http://localhost:8080/api/v1"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch args[0] {
	case "match":
		return runMatch(ctx, args[1:], stdout, stderr)
	case "cover-letter":
		return runCoverLetter(ctx, args[1:], stdout, stderr)
	case "apps":
		return runApps(ctx, args[1:], stdout, stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: jobapp <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  match         compare a resume with a job description")
	fmt.Fprintln(w, "  cover-letter  stream a cover letter")
	fmt.Fprintln(w, "  apps          list tracked applications")
}

func serverURL() string {
	if v := os.Getenv("JOBAPP_SERVER"); v != "" {
		return v
	}
	return defaultServer
}

type inputFlags struct {
	server   string
	resume   string
	job      string
	jobText  string
	resumeTx string
}

func (in *inputFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&in.server, "server", serverURL(), "API base URL")
	fs.StringVar(&in.resume, "resume", "", "resume file (.pdf, .docx, .txt)")
	fs.StringVar(&in.resumeTx, "resume-text", "", "resume text")
	fs.StringVar(&in.job, "job", "", "job description file")
	fs.StringVar(&in.jobText, "job-text", "", "job description text")
}

func runMatch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var in inputFlags
	var apply bool
	in.register(fs)
	fs.BoolVar(&apply, "apply", false, "apply every suggestion and print the updated resume")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	resume, err := readText(in.resume, in.resumeTx)
	if err != nil {
		fmt.Fprintf(stderr, "read resume: %v\n", err)
		return 1
	}
	job, err := readText(in.job, in.jobText)
	if err != nil {
		fmt.Fprintf(stderr, "read job description: %v\n", err)
		return 1
	}

	p, err := client.New(in.server).Match(ctx, client.MatchRequest{Resume: resume, Job: job})
	if err != nil {
		fmt.Fprintf(stderr, "match failed: %v\n", err)
		return 1
	}

	if !apply {
		fmt.Fprintln(stdout, p.Result)
		fmt.Fprintln(stdout)
		printSuggestions(stdout, p.Session())
		return 0
	}

	st, results := p.Session().ApplyAll()
	for _, r := range results {
		if r.Placement == reconciler.PlacementUnmatched {
			fmt.Fprintf(stderr, "skipped (best score %.2f): %s\n", r.Score, r.Key)
		}
	}
	fmt.Fprintln(stdout, st.Document.Text)
	return 0
}

func printSuggestions(w io.Writer, st reconciler.State) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFOUND\tOLD\tNEW")
	for i, v := range st.View() {
		fmt.Fprintf(tw, "%d\t%t\t%s\t%s\n", i, v.Found, oneLine(v.Old), oneLine(v.New))
	}
	tw.Flush()
}

func runCoverLetter(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cover-letter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var in inputFlags
	var letter, letterText string
	in.register(fs)
	fs.StringVar(&letter, "letter", "", "existing cover letter file")
	fs.StringVar(&letterText, "letter-text", "", "existing cover letter text")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	req := client.CoverLetterRequest{}
	var err error
	if req.Resume, err = readText(in.resume, in.resumeTx); err != nil {
		fmt.Fprintf(stderr, "read resume: %v\n", err)
		return 1
	}
	if req.Job, err = readText(in.job, in.jobText); err != nil {
		fmt.Fprintf(stderr, "read job description: %v\n", err)
		return 1
	}
	if req.Letter, err = readText(letter, letterText); err != nil {
		fmt.Fprintf(stderr, "read letter: %v\n", err)
		return 1
	}

	printed := 0
	_, err = client.New(in.server).StreamCoverLetter(ctx, req, func(_ []byte, acc *client.Accumulator) error {
		text := acc.PartialLetter()
		if len(text) > printed {
			if _, err := io.WriteString(stdout, text[printed:]); err != nil {
				return err
			}
			printed = len(text)
		}
		return nil
	})
	fmt.Fprintln(stdout)
	if err != nil {
		fmt.Fprintf(stderr, "cover letter failed: %v\n", err)
		return 1
	}
	return 0
}

func runApps(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("apps", flag.ContinueOnError)
	fs.SetOutput(stderr)
	server := fs.String("server", serverURL(), "API base URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	apps, err := client.New(*server).ListApplications(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "list failed: %v\n", err)
		return 1
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPANY\tPOSITION\tSTATUS")
	for _, a := range apps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.ID, a.Company, a.Position, a.Status)
	}
	tw.Flush()
	return 0
}

// readText loads path as an upload when set, text otherwise.
func readText(path, text string) (client.Text, error) {
	if path == "" {
		return client.Text{Body: text}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return client.Text{}, err
	}
	return client.Text{Filename: filepath.Base(path), Data: data}, nil
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
