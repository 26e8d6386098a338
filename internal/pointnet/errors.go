package pointnet

import "errors"

// Errors returned by Model.Forward for inconsistent calls.
var (
	// ErrReconstructionUnavailable is returned when a reconstruction pass is
	// requested from a model built without a reconstruction bundle.
	ErrReconstructionUnavailable = errors.New("reconstruction unavailable: model built without a reconstruction bundle")

	// ErrConvexLossUnavailable is returned when the convex path is requested
	// from a model built without a convex loss function.
	ErrConvexLossUnavailable = errors.New("convex loss unavailable: model built without a convex loss function")

	// ErrInvalidConvexOptions is returned when ConvexOptions fail validation.
	ErrInvalidConvexOptions = errors.New("invalid convex options")

	// ErrInvalidCategory is returned for a category index outside the vocabulary.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidConfig is returned by NewModel for an unusable Config.
	ErrInvalidConfig = errors.New("invalid model config")
)
