// Package filter provides the photo filter catalog and the engine that renders it.
//
// A Registry is a fixed, ordered list of Transforms. Each Transform has a
// stable engine key and a display name and delegates rendering to an Engine,
// which maps keys to Effects. The built-in engine approximates the classic
// photo effects (Chrome, Fade, Instant, Mono, Noir, Process, Tonal, Transfer)
// and the two sRGB transfer curves using the imaging, bild and go-colorful
// libraries. Exact pixel parity with any other implementation is not a goal.
//
// # Errors
//
//   - ErrOutOfRange: an index outside [0, Count()).
//   - ErrEngineUnavailable: the engine could not render a key. Callers
//     substitute the unfiltered image.
//
// # Thread Safety
//
// Registries, Transforms and Engines are immutable after construction and
// may be used from any goroutine.
package filter
