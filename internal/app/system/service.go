package system

import "context"

// Service is a long-running component with an explicit lifecycle, such as the
// background scheduler. The manager starts and stops registered services in a
// deterministic order.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
