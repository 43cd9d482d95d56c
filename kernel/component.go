package kernel

// Component is the static construction protocol: a component value carries
// configuration, Finalize consumes it together with the pre-reserved
// storage cells and returns the one initialized, indefinitely-lived driver
// instance. Components are passed by value so a finalized component cannot
// be observed half-built; the one-shot property is enforced by the cells,
// which panic on a second Put.
//
// Construction must not fail at runtime: configuration is validated before
// Finalize runs (see boardcfg), and storage shape mismatches are compile
// errors because each component names its storage struct concretely.
type Component[S, O any] interface {
	Finalize(storage S) O
}
