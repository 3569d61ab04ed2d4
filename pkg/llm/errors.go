package llm

import (
	"fmt"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

func errUnsupportedProvider(kind ProviderKind) error {
	return errs.ValidationError(fmt.Sprintf("unsupported llm provider %q", kind), nil)
}
