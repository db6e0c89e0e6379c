package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rhuss/docchat/pkg/chat"
	"github.com/rhuss/docchat/pkg/render/terminal"
)

const prompt = "> "

// repl runs the interactive chat loop. An interrupt while an answer is
// streaming cancels that answer only; an interrupt at the prompt ends the
// loop.
type repl struct {
	sess       *chat.Session
	r          *terminal.Renderer
	out        io.Writer
	interrupts <-chan os.Signal
}

func (p *repl) run(ctx context.Context, in io.Reader) error {
	stop := make(chan struct{})
	defer close(stop)
	lines := scanLines(in, stop)

	for {
		fmt.Fprint(p.out, prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return nil
		case <-p.interrupts:
			fmt.Fprintln(p.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(p.out)
				return nil
			}
			if quit := p.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

// scanLines delivers the lines of in until end of input or until stop is
// closed. The returned channel is closed when scanning ends.
func scanLines(in io.Reader, stop <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
	}()
	return lines
}

// handle runs one input line and reports whether the loop should end.
func (p *repl) handle(ctx context.Context, line string) bool {
	switch line {
	case "":
		return false
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(p.out, "Commands: /history, /thread, /help, /quit. Anything else is sent as a question.")
	case "/history":
		p.restore(ctx)
		p.r.RenderHistory(p.out, p.sess.Messages())
	case "/thread":
		fmt.Fprintln(p.out, p.sess.ThreadID())
	default:
		p.ask(ctx, line)
	}
	return false
}

func (p *repl) ask(ctx context.Context, query string) {
	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		select {
		case <-p.interrupts:
			cancel()
		case <-done:
		}
	}()

	sw := p.r.NewStreamWriter(p.out)
	_, err := p.sess.Send(sendCtx, query, sw.Chunk)
	close(done)
	sw.End(err)
	if err != nil {
		p.r.RenderError(p.out, err)
	}
}

// resume loads the history of an existing thread and prints its turns.
func (p *repl) resume(ctx context.Context) {
	p.restore(ctx)
	for _, turn := range p.sess.Messages() {
		p.r.RenderTurn(p.out, turn)
	}
}

// restore loads the thread history into the session, reporting failures
// without ending the chat.
func (p *repl) restore(ctx context.Context) {
	if _, err := p.sess.Restore(ctx); err != nil {
		p.r.RenderError(p.out, err)
	}
}

// notifyInterrupts delivers SIGINT to the returned channel instead of
// terminating the process.
func notifyInterrupts() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch, func() { signal.Stop(ch) }
}

// interruptContext is cancelled on SIGINT or SIGTERM.
func interruptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
