package eventbus

import (
	"context"

	"github.com/knsuzuki/shopmail/internal/notification"
)

// Wildcard subscribes a listener to every event name.
const Wildcard = "*"

// Listener handles a pre-send event. It may modify e.Message; the sender
// uses whatever the listeners leave behind.
type Listener func(ctx context.Context, e *notification.Event)
