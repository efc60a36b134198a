package texpreview

import (
	"github.com/hassaan-janjua/led-localization/texpreview/internal/bufpool"
)

// Buffer is the frame slot exchanged between the capture source, the
// pending queue, and the render worker. The concrete type lives in the
// internal bufpool package; see Source for the fill protocol and the
// ownership rules.
type Buffer = bufpool.Buffer
