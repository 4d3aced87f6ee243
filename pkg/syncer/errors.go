package syncer

import (
	"fmt"

	"github.com/harrisonrobin/sheetsync/pkg/model"
)

func errorFor(res model.FetchResult) error {
	switch res.ErrorKind {
	case model.KindMalformedResponse:
		return fmt.Errorf("%w: %s", model.ErrMalformedResponse, res.Detail)
	default:
		return fmt.Errorf("%w: %s", model.ErrRemoteUnavailable, res.Detail)
	}
}
