package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/spigell/bidwin/internal/store"
)

var errNoRFPs = errors.New("there are no rfps yet, register a tender document first")

// resolveRFPID parses the id argument or, when it is missing, asks the operator
// to pick one of the stored RFPs.
func resolveRFPID(ctx context.Context, st store.Store, args []string) (int, error) {
	if len(args) > 0 {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid rfp id %q", args[0])
		}
		return id, nil
	}

	rfps, err := st.ListRFPs(ctx)
	if err != nil {
		return 0, err
	}
	if len(rfps) == 0 {
		return 0, errNoRFPs
	}

	items := make([]string, 0, len(rfps))
	for _, rfp := range rfps {
		items = append(items, fmt.Sprintf("%d %s / %s / %s", rfp.ID, rfp.Title, rfp.ClientName, rfp.Status))
	}

	rfpPrompt := promptui.Select{
		Label: "Choose an RFP and press ENTER",
		Items: items,
	}

	_, selected, err := rfpPrompt.Run()
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(strings.Split(selected, " ")[0])
}
