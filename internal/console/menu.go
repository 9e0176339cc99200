package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/starford/epiledger/internal/apperr"
	"github.com/starford/epiledger/internal/recordservice"
)

const menuText = `
COVID Data Management System
1. Add Daily Data
2. View All Data
3. Analyze Risk Zones
4. Show Trend Series
5. Predict Hotspot
6. Exit
`

// errQuit ends the menu loop when input runs out mid-prompt.
var errQuit = errors.New("input closed")

// Menu runs the interactive loop over in until the user exits or input ends.
// Errors from individual actions are printed and the loop continues, except
// for a failed save which is also retried on request.
func (c *Console) Menu(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.printf("%s", menuText)
		choice, err := c.prompt(sc, "Enter your choice: ")
		if err != nil {
			c.printf("\n")
			return nil
		}

		switch choice {
		case "1":
			err = c.menuAdd(ctx, sc)
		case "2":
			err = c.List(ctx, "", false)
		case "3":
			err = c.RiskZones(ctx, false)
		case "4":
			err = c.Trends(ctx, "", false)
		case "5":
			err = c.Hotspot(ctx, false)
			if errors.Is(err, apperr.ErrEmptyInput) {
				err = nil
			}
		case "6":
			c.printf("Exiting the program...\n")
			return nil
		default:
			c.printf("Invalid choice! Please try again.\n")
			continue
		}

		if errors.Is(err, errQuit) {
			c.printf("\n")
			return nil
		}
		if err != nil {
			c.printf("Error: %v\n", err)
		}
	}
}

func (c *Console) prompt(sc *bufio.Scanner, label string) (string, error) {
	c.printf("%s", label)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	return strings.TrimSpace(sc.Text()), nil
}

func (c *Console) promptCount(sc *bufio.Scanner, label string) (int, error) {
	for {
		text, err := c.prompt(sc, label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(text)
		if err == nil && n >= 0 {
			return n, nil
		}
		c.printf("Please enter a non-negative whole number.\n")
	}
}

func (c *Console) menuAdd(ctx context.Context, sc *bufio.Scanner) error {
	var in recordservice.AddInput
	var err error
	if in.City, err = c.prompt(sc, "Enter the city: "); err != nil {
		return err
	}
	if in.Date, err = c.prompt(sc, "Enter date (YYYY-MM-DD): "); err != nil {
		return err
	}
	if in.Cases, err = c.promptCount(sc, "Enter the number of cases: "); err != nil {
		return err
	}
	if in.Recovered, err = c.promptCount(sc, "Enter the number of recovered: "); err != nil {
		return err
	}
	if in.Deaths, err = c.promptCount(sc, "Enter the number of deaths: "); err != nil {
		return err
	}

	err = c.Add(ctx, in)
	if !errors.Is(err, apperr.ErrPersistence) {
		return err
	}
	answer, perr := c.prompt(sc, "Retry saving now? [y/N]: ")
	if perr != nil {
		return perr
	}
	if !strings.EqualFold(answer, "y") {
		return err
	}
	if err := c.svc.Resave(ctx); err != nil {
		return err
	}
	c.printf("Saved.\n")
	return nil
}
