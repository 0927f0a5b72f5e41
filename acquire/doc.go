// Package acquire turns a classified remote source into a local audio
// artifact inside the job workspace.
//
// Provider adapters implement one capability, provider.RequestResponse over
// Request and *Artifact, and are registered by name. A Chain orders them per
// provider family, provider-native adapters first and the generic fallback
// last, and tries them in turn:
//
//   - success short-circuits the chain
//   - UNSUPPORTED_CONTENT or cancellation aborts it, since no other adapter can help
//   - any other failure rolls back the attempt's partial files and moves on
//
// When every adapter has failed, Acquire returns ACQUISITION_FAILED carrying
// the ordered list of attempts.
package acquire
