package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/pkg/event"
	"github.com/Protocol-Lattice/research-agent/pkg/upload"
)

func askCmd() *cobra.Command {
	var (
		session  string
		filePath string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Answer one prompt and print the event stream",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			req := agent.Request{Prompt: strings.Join(args, " "), SessionID: session}
			if filePath != "" {
				if err := attach(&req, a.parser, filePath); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			var sink event.Sink = event.SinkFunc(func(_ context.Context, e event.Event) error {
				printEvent(out, e)
				return nil
			})
			if asJSON {
				enc := json.NewEncoder(out)
				sink = event.SinkFunc(func(_ context.Context, e event.Event) error { return enc.Encode(e) })
			}
			return a.agent.Stream(ctx, req, sink)
		},
	}
	cmd.Flags().StringVarP(&session, "session", "s", agent.DefaultSessionID, "session id for conversation history")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "attach an image or document")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw events as JSON lines")
	return cmd
}

func attach(req *agent.Request, parser *upload.Parser, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	res, err := parser.Parse(path, "", f)
	if err != nil {
		return err
	}
	if res.Kind == upload.KindImage {
		req.Image = &agent.Image{Filename: res.Filename, MIME: res.MIME, Data: res.Data}
	} else {
		req.Document = &agent.Document{Filename: res.Filename, Text: res.Text}
	}
	return nil
}

func printEvent(w io.Writer, e event.Event) {
	switch e.Type {
	case event.TypeStatusUpdate:
		fmt.Fprintf(w, "» %s\n", e.Content)
	case event.TypeThinkingChunk:
		fmt.Fprint(w, e.Content)
	case event.TypeThinkingDone:
		fmt.Fprintln(w, "\n---")
	case event.TypeFinalAnswer:
		fmt.Fprintf(w, "\n%s\n", e.Content)
	case event.TypeError:
		fmt.Fprintf(w, "\nerror: %s\n", e.Content)
	}
}
