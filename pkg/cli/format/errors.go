package format

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/letsgo-sh/ops/pkg/types"
)

// PrintError writes err to w with a hint for the error kinds a user can act
// on.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}

	var invalid *types.InvalidSelectionError
	var failed *types.AggregateError
	switch {
	case errors.As(err, &invalid):
		fmt.Fprintf(w, "%s %s\n", ErrorColor.Sprint("Error:"), err)
		fmt.Fprintln(w, HintColor.Sprintf("Hint: choose from %s", strings.Join(invalid.Allowed, ", ")))
	case errors.As(err, &failed):
		fmt.Fprintf(w, "%s teardown failed for %s\n", ErrorColor.Sprint("Error:"),
			strings.Join(types.CatalogNames(failed.Failed), ", "))
		for _, e := range failed.Errs {
			fmt.Fprintf(w, "  %s %s\n", StatusSymbol(false), e)
		}
		fmt.Fprintln(w, HintColor.Sprint("Hint: deletes are idempotent, run the same command again to retry"))
	default:
		fmt.Fprintf(w, "%s %s\n", ErrorColor.Sprint("Error:"), err)
	}
}
