package nn

import (
	"github.com/born-ml/pointseg/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Parameters are tensors that an external optimizer updates during training.
// They typically represent weights and biases of layers.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	w := weight.Tensor()
type Parameter[B tensor.Backend] struct {
	name   string                     // Parameter name (e.g., "weight", "bias")
	tensor *tensor.Tensor[float32, B] // The parameter tensor
}

// NewParameter creates a new trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// WithPrefix returns params renamed as "prefix.name", used by containers
// so nested parameter names stay unique.
func WithPrefix[B tensor.Backend](prefix string, params []*Parameter[B]) []*Parameter[B] {
	out := make([]*Parameter[B], len(params))
	for i, p := range params {
		out[i] = NewParameter(prefix+"."+p.name, p.tensor)
	}
	return out
}
