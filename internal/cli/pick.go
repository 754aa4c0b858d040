package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/koki-develop/go-fzf"

	"github.com/berth-dev/interview/internal/questionbank"
	"github.com/berth-dev/interview/internal/speech"
)

// errNoRole is returned when --role is missing and no terminal is available
// to pick one.
var errNoRole = errors.New("--role is required when stdin is not a terminal")

// chooseRole returns role when set, otherwise lets the user pick one of the
// bank's roles with a fuzzy finder.
func chooseRole(role string, bank *questionbank.Bank) (string, error) {
	if role != "" {
		return role, nil
	}
	if speech.RequireTTY(os.Stdin) != nil {
		return "", errNoRole
	}

	roles := bank.Roles()
	if len(roles) == 0 {
		return "", fmt.Errorf("question bank has no roles")
	}

	f, err := fzf.New(
		fzf.WithPrompt("Role > "),
		fzf.WithInputPosition(fzf.InputPositionTop),
		fzf.WithLimit(1),
	)
	if err != nil {
		return "", err
	}
	idxs, err := f.Find(
		roles,
		func(i int) string { return roles[i] },
		fzf.WithPreviewWindow(func(i, w, h int) string {
			if i < 0 || i >= len(roles) {
				return ""
			}
			return rolePreview(bank, roles[i])
		}),
	)
	if err != nil {
		return "", err
	}
	if len(idxs) == 0 {
		return "", errors.New("no role selected")
	}
	return roles[idxs[0]], nil
}

func rolePreview(bank *questionbank.Bank, role string) string {
	var b strings.Builder
	qs, _ := bank.Questions(role)
	fmt.Fprintf(&b, "%s (%d questions)\n\n", role, len(qs))
	for i, q := range qs {
		fmt.Fprintf(&b, "%2d. %s\n", i+1, q)
	}
	if kw := bank.Keywords(role); len(kw) > 0 {
		fmt.Fprintf(&b, "\nKeywords: %s\n", strings.Join(kw, ", "))
	}
	return b.String()
}
