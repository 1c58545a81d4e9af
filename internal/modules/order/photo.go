// README: Photo-gated transitions: departure triggers delivering, arrival
// triggers completion.
package order

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"kedai/internal/fault"
	"kedai/internal/types"
)

type PhotoKind string

const (
	PhotoDeparture PhotoKind = "departure"
	PhotoArrival   PhotoKind = "arrival"
)

var allowedPhotoExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

type PhotoCommand struct {
	OrderID  int64
	Actor    types.Principal
	Kind     PhotoKind
	Filename string
	Size     int64
	File     io.Reader
}

// SubmitPhoto validates the capture, stores the file, and fires the gated
// transition inside one lease. A stale or out-of-phase upload is rejected
// before anything is mutated; if the transaction fails the stored file is
// unlinked again.
func (s *Service) SubmitPhoto(ctx context.Context, cmd PhotoCommand) error {
	if cmd.Actor.Role != types.RoleCourier {
		return fault.New(fault.Forbidden, "only the assigned courier uploads delivery photos")
	}
	if cmd.Kind != PhotoDeparture && cmd.Kind != PhotoArrival {
		return fault.Newf(fault.PreconditionFailed, "unknown photo type %q", cmd.Kind)
	}
	ext := strings.ToLower(filepath.Ext(cmd.Filename))
	if !allowedPhotoExt[ext] {
		return fault.Newf(fault.PreconditionFailed, "unsupported image type %q, want jpg or png", ext)
	}
	if cmd.Size <= 0 || cmd.Size > s.photo.MaxBytes {
		return fault.Newf(fault.PreconditionFailed, "photo size %d exceeds limit of %d bytes", cmd.Size, s.photo.MaxBytes)
	}

	name := fmt.Sprintf("%s_%s%s", uuid.NewString(), cmd.Kind, ext)
	path, err := s.files.Save(ctx, name, cmd.File)
	if err != nil {
		return fault.Wrap(err)
	}

	err = s.store.Lease(ctx, cmd.OrderID, func(ctx context.Context, uow UnitOfWork) error {
		o := uow.Order()
		if o.CourierID == nil || *o.CourierID != cmd.Actor.ID {
			return fault.New(fault.NotOwner, "not your order")
		}
		switch cmd.Kind {
		case PhotoDeparture:
			if o.Status != StatusReady && o.Status != StatusProcessing {
				return fault.Newf(fault.PreconditionFailed, "departure photo not accepted while order is %s", o.Status)
			}
			o.DeparturePhoto = &path
			// A departure capture from the counter while still processing
			// walks through ready first; both hops are logged.
			if o.Status == StatusProcessing {
				if err := s.Apply(ctx, uow, StatusReady, cmd.Actor, "departure photo", nil); err != nil {
					return err
				}
			}
			return s.Apply(ctx, uow, StatusDelivering, cmd.Actor, "departure photo", map[string]any{"photo": path})
		case PhotoArrival:
			if o.Status != StatusDelivering {
				return fault.Newf(fault.PreconditionFailed, "arrival photo not accepted while order is %s", o.Status)
			}
			o.ArrivalPhoto = &path
			return s.Apply(ctx, uow, StatusCompleted, cmd.Actor, "arrival photo", map[string]any{"photo": path})
		}
		return nil
	})
	if err != nil {
		if rmErr := s.files.Remove(ctx, path); rmErr != nil && s.log != nil {
			s.log.Warnw("orphaned photo after rollback", "path", path, "error", rmErr)
		}
		return err
	}
	return nil
}
