// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recorder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/mc-trading/internal/normalize"
	"github.com/pdiddy/mc-trading/pkg/types"
)

// Menu choices offered after each trade.
const (
	nextSameVillager = iota + 1
	nextSameLocation
	nextNewLocation
	nextExit
)

// Session walks the operator through location, villager, and trade prompts
// until they choose to exit, input ends, or the context is cancelled.
type Session struct {
	rec      *Recorder
	out      io.Writer
	recorded int

	// lines is fed by scan and closed at end of input; readErr is set
	// before the close.
	lines   chan string
	stop    chan struct{}
	readErr error
}

// NewSession creates a Session reading answers from in and writing
// prompts to out. Input is read on its own goroutine so that a blocked
// read does not hold up cancellation.
func NewSession(rec *Recorder, in io.Reader, out io.Writer) *Session {
	s := &Session{
		rec:   rec,
		out:   out,
		lines: make(chan string),
		stop:  make(chan struct{}),
	}
	go s.scan(in)
	return s
}

func (s *Session) scan(in io.Reader) {
	defer close(s.lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case s.lines <- sc.Text():
		case <-s.stop:
			return
		}
	}
	s.readErr = sc.Err()
}

// Recorded returns the number of trades inserted so far.
func (s *Session) Recorded() int { return s.recorded }

// Run drives the prompt loop. End of input finishes the session without
// error; cancellation returns the context's error, and store failures that
// are not operator mistakes are returned as they are. A Session runs once.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.stop)

	err := s.run(ctx)
	switch {
	case errors.Is(err, io.EOF):
		fmt.Fprintln(s.out)
		err = nil
	case ctx.Err() != nil:
		fmt.Fprintln(s.out)
	}
	s.rec.logger.Info("recording session ended", zap.Int("trades", s.recorded))
	fmt.Fprintf(s.out, "Recorded %d trade(s).\n", s.recorded)
	return err
}

func (s *Session) run(ctx context.Context) error {
	for {
		loc, err := s.promptLocation(ctx)
		if err != nil {
			return err
		}

	villagers:
		for {
			v, err := s.promptVillager(ctx, loc)
			if err != nil {
				return err
			}

			for {
				if err := ctx.Err(); err != nil {
					return err
				}

				full, err := s.villagerFull(ctx, v)
				if err != nil {
					return err
				}
				if full {
					continue villagers
				}

				if err := s.promptTrade(ctx, v); err != nil {
					return err
				}

				choice, err := s.promptNext(ctx)
				if err != nil {
					return err
				}
				switch choice {
				case nextSameVillager:
					continue
				case nextSameLocation:
					continue villagers
				case nextNewLocation:
					break villagers
				case nextExit:
					return nil
				}
			}
		}
	}
}

func (s *Session) promptLocation(ctx context.Context) (types.Location, error) {
	locs, err := s.rec.store.Locations(ctx)
	if err != nil {
		return types.Location{}, err
	}
	if len(locs) > 0 {
		fmt.Fprintln(s.out, "Known locations:")
		for _, l := range locs {
			fmt.Fprintf(s.out, "  %s (%d, %d)\n", l.Name, l.X, l.Z)
		}
	}

	for {
		name, err := s.readLine(ctx, "Location: ")
		if err != nil {
			return types.Location{}, err
		}
		name = cleanName(name)
		if name == "" {
			continue
		}

		loc, err := s.rec.store.Location(ctx, name)
		if err == nil {
			return loc, nil
		}
		var nf *types.NotFoundError
		if !errors.As(err, &nf) {
			return types.Location{}, err
		}

		ok, err := s.confirm(ctx, fmt.Sprintf("Location %q not found. Add it?", name))
		if err != nil {
			return types.Location{}, err
		}
		if !ok {
			continue
		}

		loc = types.Location{Name: name}
		if loc.X, err = s.readInt(ctx, "X coordinate: ", "x_coord"); err != nil {
			return types.Location{}, err
		}
		if loc.Z, err = s.readInt(ctx, "Z coordinate: ", "z_coord"); err != nil {
			return types.Location{}, err
		}
		if err := s.rec.store.AddLocation(ctx, loc); err != nil {
			if s.report(err) {
				continue
			}
			return types.Location{}, err
		}
		fmt.Fprintf(s.out, "Added location %s (%d, %d).\n", loc.Name, loc.X, loc.Z)
		return loc, nil
	}
}

func (s *Session) promptVillager(ctx context.Context, loc types.Location) (types.Villager, error) {
	for {
		id, err := s.readLine(ctx, "Villager ID: ")
		if err != nil {
			return types.Villager{}, err
		}
		id = cleanName(id)
		if id == "" {
			continue
		}

		v, err := s.rec.store.Villager(ctx, id)
		var nf *types.NotFoundError
		switch {
		case errors.As(err, &nf):
			ok, err := s.confirm(ctx, fmt.Sprintf("Villager %q not found. Register as a new librarian at %s?", id, loc.Name))
			if err != nil {
				return types.Villager{}, err
			}
			if !ok {
				continue
			}
			v = types.Villager{ID: id, Location: loc.Name, Job: types.JobLibrarian}
			if err := s.rec.store.AddVillager(ctx, v); err != nil {
				if s.report(err) {
					continue
				}
				return types.Villager{}, err
			}
			fmt.Fprintf(s.out, "Registered librarian %s at %s.\n", v.ID, v.Location)
			return v, nil

		case err != nil:
			return types.Villager{}, err
		}

		if v.Job != types.JobLibrarian {
			fmt.Fprintf(s.out, "Villager %s is a %s, not a librarian.\n", v.ID, v.Job)
			continue
		}

		if v.Location != loc.Name {
			ok, err := s.confirm(ctx, fmt.Sprintf("Villager %s is registered at %s. Move to %s?", v.ID, v.Location, loc.Name))
			if err != nil {
				return types.Villager{}, err
			}
			if !ok {
				continue
			}
			if err := s.rec.store.MoveVillager(ctx, v.ID, loc.Name); err != nil {
				if s.report(err) {
					continue
				}
				return types.Villager{}, err
			}
			v.Location = loc.Name
			fmt.Fprintf(s.out, "Moved %s to %s.\n", v.ID, loc.Name)
		}
		return v, nil
	}
}

func (s *Session) villagerFull(ctx context.Context, v types.Villager) (bool, error) {
	n, err := s.rec.store.TradeCount(ctx, v.ID)
	if err != nil {
		return false, err
	}
	if n >= s.rec.cfg.MaxTrades {
		fmt.Fprintf(s.out, "Villager %s already has %d trades recorded.\n", v.ID, n)
		return true, nil
	}
	return false, nil
}

func (s *Session) promptTrade(ctx context.Context, v types.Villager) error {
	var ench types.Enchantment
	for {
		name, err := s.readLine(ctx, "Enchantment: ")
		if err != nil {
			return err
		}
		if name == "" {
			continue
		}
		ench, err = s.rec.store.Enchantment(ctx, cleanName(name))
		if err == nil {
			break
		}
		if !s.report(err) {
			return err
		}
	}

	level := 1
	if ench.MaxLevel == 1 {
		fmt.Fprintf(s.out, "%s has a single level; using level 1.\n", ench.Name)
	} else {
		for {
			n, err := s.readInt(ctx, fmt.Sprintf("Level (1-%d): ", ench.MaxLevel), "enchantment_level")
			if err != nil {
				return err
			}
			if err := CheckLevel(ench, n); err != nil {
				s.report(err)
				continue
			}
			level = n
			break
		}
	}

	var cost int
	for {
		n, err := s.readInt(ctx, fmt.Sprintf("Cost in emeralds (1-%d): ", s.rec.cfg.MaxCost), "cost_emeralds")
		if err != nil {
			return err
		}
		if err := s.rec.CheckCost(n); err != nil {
			s.report(err)
			continue
		}
		cost = n
		break
	}

	in := TradeInput{VillagerID: v.ID, Enchantment: ench.Name, Level: level, Cost: cost}
	obs, err := s.rec.Validate(ctx, in)
	if err != nil {
		if s.report(err) {
			return nil
		}
		return err
	}

	dup, err := s.rec.store.HasTrade(ctx, obs)
	if err != nil {
		return err
	}
	if dup {
		ok, err := s.confirm(ctx, "An identical trade is already recorded for this villager. Record it again?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(s.out, "Trade skipped.")
			return nil
		}
	}

	if lo, _ := normalize.LibrarianCostRange(level); cost < lo {
		fmt.Fprintf(s.out, "Note: %d emeralds is below the usual minimum of %d for level %d.\n", cost, lo, level)
	}

	obs, err = s.rec.Record(ctx, in)
	if err != nil {
		if s.report(err) {
			return nil
		}
		return err
	}
	s.recorded++
	fmt.Fprintf(s.out, "Recorded trade #%d: %s %d for %d emeralds.\n", obs.TradeID, obs.Enchantment, obs.Level, obs.CostEmeralds)
	return nil
}

func (s *Session) promptNext(ctx context.Context) (int, error) {
	for {
		fmt.Fprintln(s.out, "Next:")
		fmt.Fprintln(s.out, "  1) same villager")
		fmt.Fprintln(s.out, "  2) another villager at this location")
		fmt.Fprintln(s.out, "  3) different location")
		fmt.Fprintln(s.out, "  4) exit")
		n, err := s.readInt(ctx, "Choice: ", "choice")
		if err != nil {
			return 0, err
		}
		if n >= nextSameVillager && n <= nextExit {
			return n, nil
		}
		fmt.Fprintln(s.out, "Choose 1, 2, 3, or 4.")
	}
}

func (s *Session) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			if s.readErr != nil {
				return "", fmt.Errorf("reading input: %w", s.readErr)
			}
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// readInt prompts until the answer parses as an integer.
func (s *Session) readInt(ctx context.Context, prompt, field string) (int, error) {
	for {
		line, err := s.readLine(ctx, prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			s.report(&types.ValidationError{Field: field, Value: line, Reason: "not a whole number"})
			continue
		}
		return n, nil
	}
}

func (s *Session) confirm(ctx context.Context, question string) (bool, error) {
	line, err := s.readLine(ctx, question+" [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// report prints a recoverable error and returns true, or returns false
// for anything the session should stop on.
func (s *Session) report(err error) bool {
	if !Recoverable(err) {
		return false
	}
	fmt.Fprintf(s.out, "Error: %v\n", err)
	s.rec.logger.Debug("input rejected", zap.Error(err))
	return true
}
