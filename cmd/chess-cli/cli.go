package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/justinabrahms/deskchess/internal/chess"
	"github.com/justinabrahms/deskchess/internal/game"
	"github.com/justinabrahms/deskchess/internal/record"
	"github.com/justinabrahms/deskchess/internal/render"
)

const help = `Commands:
  e2e4, e7e8q     play a move in coordinate notation
  moves e2        show where the piece on e2 can go
  back            take back the last move
  new             start again from the first position
  resign          resign for the side to move
  board           redraw the board
  flip            turn the board around
  fen             print the position as FEN
  pgn             print the game as PGN
  save FILE       write a save file
  load FILE       resume a save file
  help            show this text
  quit            leave`

// CLI is a hot-seat game on a terminal: both players type their moves on
// the same input.
type CLI struct {
	opts    game.Options
	out     io.Writer
	flip    bool
	ascii   bool
	noColor bool
	now     func() time.Time

	session *game.Session
}

func (c *CLI) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Start creates the first game, resumed from loadPath when it is set.
func (c *CLI) Start(loadPath string) error {
	if c.now != nil {
		c.opts.Now = c.now
	}
	if loadPath != "" {
		return c.load(loadPath)
	}
	s, err := game.New(c.opts, c.listener())
	if err != nil {
		return err
	}
	c.session = s
	return nil
}

func (c *CLI) listener() game.Listener {
	return game.ListenerFunc(func(e game.Event) {
		switch e.Type {
		case game.EventCheckmate, game.EventStalemate, game.EventDraw,
			game.EventTimeout, game.EventResign:
			fmt.Fprintf(c.out, "Game over: %s\n", e.Reason)
		case game.EventPromotion:
			fmt.Fprintln(c.out, "Promote to (q/r/b/n)?")
		}
	})
}

// Run reads commands until quit or end of input.
func (c *CLI) Run(in io.Reader) error {
	c.drawBoard(nil)
	scanner := bufio.NewScanner(in)
	c.prompt()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		c.session.Tick(c.clock())
		if line == "" {
			c.prompt()
			continue
		}
		if quit := c.exec(line); quit {
			return nil
		}
		c.prompt()
	}
	return scanner.Err()
}

func (c *CLI) prompt() {
	st := c.session.State()
	if st.Status != chess.StatusActive {
		fmt.Fprint(c.out, "> ")
		return
	}
	name := st.White
	if st.Turn == "black" {
		name = st.Black
	}
	if st.PromotionPending {
		fmt.Fprintf(c.out, "%s promotes> ", name)
		return
	}
	fmt.Fprintf(c.out, "%s (%s)> ", name, st.Turn)
}

// exec runs one command and reports whether the user wants to leave.
func (c *CLI) exec(line string) bool {
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	if c.session.State().PromotionPending && len(cmd) == 1 {
		c.promote(cmd)
		return false
	}

	var err error
	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(c.out, help)
	case "board":
		c.drawBoard(nil)
	case "flip":
		c.flip = !c.flip
		c.drawBoard(nil)
	case "fen":
		fmt.Fprintln(c.out, c.session.FEN())
	case "pgn":
		err = c.printPGN()
	case "moves":
		err = c.showMoves(args)
	case "back":
		if err = c.session.StepBack(); err == nil {
			c.drawBoard(nil)
		}
	case "new":
		if err = c.session.NewGame(); err == nil {
			c.drawBoard(nil)
		}
	case "resign":
		var side chess.Side
		if side, err = chess.ParseSide(c.session.State().Turn); err == nil {
			err = c.session.Resign(side)
		}
	case "save":
		err = c.withPath(args, c.save)
	case "load":
		err = c.withPath(args, func(path string) error {
			if err := c.load(path); err != nil {
				return err
			}
			c.drawBoard(nil)
			return nil
		})
	default:
		err = c.move(cmd)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %s\n", err)
	}
	return false
}

func (c *CLI) move(str string) error {
	if _, err := c.session.MoveString(str); err != nil {
		return err
	}
	c.drawBoard(nil)
	return nil
}

func (c *CLI) promote(piece string) {
	choice := chess.ParsePromotion(piece)
	if _, err := c.session.Promote(choice); err != nil {
		fmt.Fprintf(c.out, "Error: %s, choose q, r, b or n\n", err)
		return
	}
	c.drawBoard(nil)
}

func (c *CLI) showMoves(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: moves SQUARE")
	}
	from, err := chess.ParsePos(args[0])
	if err != nil {
		return err
	}
	if len(c.session.Select(from)) == 0 {
		c.session.Deselect()
		return fmt.Errorf("no moves from %s", from)
	}
	defer c.session.Deselect()

	selected, targets := c.session.Selection()
	if targets == nil {
		for _, m := range c.session.ValidMoves(from) {
			targets = append(targets, m.To)
		}
	}
	c.drawBoard(&render.Options{Selected: selected, Highlights: targets})

	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.String())
	}
	fmt.Fprintf(c.out, "%s: %s\n", from, strings.Join(names, " "))
	return nil
}

func (c *CLI) drawBoard(opts *render.Options) {
	st := c.session.State()
	o := render.Options{Selected: chess.InvalidPos}
	if opts != nil {
		o = *opts
	}
	o.Flip, o.ASCII, o.NoColor = c.flip, c.ascii, c.noColor

	if err := render.Board(c.out, &st.Position, o); err != nil {
		fmt.Fprintf(c.out, "Error: %s\n", err)
		return
	}
	if st.Clock != nil {
		fmt.Fprintf(c.out, "%s %s | %s %s\n",
			st.White, game.FormatRemaining(time.Duration(st.Clock.WhiteMs)*time.Millisecond),
			st.Black, game.FormatRemaining(time.Duration(st.Clock.BlackMs)*time.Millisecond))
	}
	if st.Material.White != st.Material.Black {
		fmt.Fprintf(c.out, "Material %d-%d\n", st.Material.White, st.Material.Black)
	}
	if st.Status == chess.StatusActive && st.Check {
		fmt.Fprintln(c.out, "Check!")
	}
}

func (c *CLI) printPGN() error {
	pgn, err := record.PGN(record.FromSession(c.session))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, pgn)
	return nil
}

func (c *CLI) withPath(args []string, fn func(string) error) error {
	if len(args) != 1 {
		return errors.New("a file name is required")
	}
	return fn(args[0])
}

func (c *CLI) save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := record.Encode(f, record.FromSession(c.session)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved to %s\n", path)
	return nil
}

func (c *CLI) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	g, err := record.Decode(f)
	if err != nil {
		return err
	}
	s, err := record.Replay(g, c.opts, c.listener())
	if err != nil {
		return err
	}
	c.session = s
	return nil
}
