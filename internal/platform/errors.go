package platform

import (
	"fmt"

	"github.com/cjl-github/chiwen/internal/errors"
)

func errMissingField(field string) error {
	return errors.NewMalformedResponseError(fmt.Sprintf("missing %q field", field), nil)
}
