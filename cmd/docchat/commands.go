package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rhuss/docchat/pkg/chat"
	"github.com/rhuss/docchat/pkg/render/terminal"
)

var threadFlag = &cli.StringFlag{Name: "thread", Aliases: []string{"t"}, Usage: "Chat thread ID"}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a document and open a chat thread on it",
		ArgsUsage: "FILE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("upload needs exactly one FILE argument")
			}
			a, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sess := a.newSession()
			if err := startFromFile(ctx, sess, cmd.Args().First()); err != nil {
				return a.fail(err)
			}
			fmt.Printf("asset_id: %s\nchat_thread_id: %s\n", sess.AssetID(), sess.ThreadID())
			return nil
		},
	}
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask one question and stream the answer",
		ArgsUsage: "QUESTION...",
		Flags:     []cli.Flag{requiredThreadFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			a, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sess := a.newSession()
			if err := sess.Attach(cmd.String("thread")); err != nil {
				return a.fail(err)
			}

			ctx, stop := interruptContext(ctx)
			defer stop()

			r := terminal.New()
			r.RenderQuestion(os.Stdout, query)
			sw := r.NewStreamWriter(os.Stdout)
			_, err = sess.Send(ctx, query, sw.Chunk)
			sw.End(err)
			if err != nil {
				return a.fail(err)
			}
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the questions and answers of a thread",
		Flags: []cli.Flag{requiredThreadFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sess := a.newSession()
			if err := sess.Attach(cmd.String("thread")); err != nil {
				return a.fail(err)
			}
			turns, err := sess.Restore(ctx)
			if err != nil {
				return a.fail(err)
			}
			r := terminal.New()
			if fallback := sess.LastError(); fallback != nil {
				// Restore fell back to the local transcript.
				r.RenderError(os.Stderr, fallback)
			}
			r.RenderHistory(os.Stdout, turns)
			return nil
		},
	}
}

func threadsCommand() *cli.Command {
	return &cli.Command{
		Name:  "threads",
		Usage: "List threads recorded in the local transcript store",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if a.store == nil {
				return errors.New("transcript storage is disabled (storage.type is none)")
			}
			threads, err := a.store.ListThreads(ctx)
			if err != nil {
				return fmt.Errorf("listing threads: %w", err)
			}
			terminal.New().RenderThreads(os.Stdout, threads)
			return nil
		},
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive chat on a new document or an existing thread",
		Flags: []cli.Flag{
			threadFlag,
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Upload this document first"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			threadID, file := cmd.String("thread"), cmd.String("file")
			if (threadID == "") == (file == "") {
				return errors.New("chat needs exactly one of --thread or --file")
			}
			a, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sess := a.newSession()
			r := terminal.New()
			if file != "" {
				if err := startFromFile(ctx, sess, file); err != nil {
					return a.fail(err)
				}
			} else if err := sess.Attach(threadID); err != nil {
				return a.fail(err)
			}

			interrupts, stop := notifyInterrupts()
			defer stop()

			p := &repl{sess: sess, r: r, out: os.Stdout, interrupts: interrupts}
			if threadID != "" {
				p.resume(ctx)
			}
			r.RenderWelcome(os.Stdout, sess.ThreadID())
			return p.run(ctx, os.Stdin)
		},
	}
}

func requiredThreadFlag() *cli.StringFlag {
	f := *threadFlag
	f.Required = true
	return &f
}

func (a *app) newSession() *chat.Session {
	opts := []chat.Option{chat.WithLogger(a.logger)}
	if a.store != nil {
		opts = append(opts, chat.WithStore(a.store))
	}
	return chat.NewSession(a.client, opts...)
}

// fail renders err on stderr and turns it into a non-zero exit.
func (a *app) fail(err error) error {
	terminal.New().RenderError(os.Stderr, err)
	return cli.Exit("", 1)
}

func startFromFile(ctx context.Context, sess *chat.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()
	return sess.Start(ctx, filepath.Base(path), f)
}
