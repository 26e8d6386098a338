package pointnet

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/pointseg/internal/nn"
	"github.com/born-ml/pointseg/internal/tensor"
)

// PartLoss is the per-point classification loss: mean negative
// log-likelihood of the target part over every point of the batch.
//
// Predictions are the model's (B, N, parts) log-probabilities, so the
// cross-entropy over them equals the NLL.
type PartLoss[B tensor.Backend] struct {
	ce *nn.CrossEntropyLoss[B]
}

// NewPartLoss creates a PartLoss.
func NewPartLoss[B tensor.Backend](backend B) *PartLoss[B] {
	return &PartLoss[B]{ce: nn.NewCrossEntropyLoss(backend)}
}

// Forward returns the mean loss as a shape-[1] tensor.
func (l *PartLoss[B]) Forward(pred *tensor.Tensor[float32, B], target *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	ps, ts := pred.Shape(), target.Shape()
	if len(ps) != 3 || len(ts) != 2 || ps[0] != ts[0] || ps[1] != ts[1] {
		panic(fmt.Sprintf("part loss: predictions %v do not match targets %v", ps, ts))
	}
	rows := ps[0] * ps[1]
	return l.ce.Forward(pred.Reshape(rows, ps[2]), target.Reshape(rows))
}

// DefaultMargin is the similarity below which negative pairs are free.
const DefaultMargin = 0.5

// SelfSupervisedLoss is a margin contrastive loss over per-point embeddings.
//
// Within each batch item every pair of points (i, j), i != j, is scored by
// the cosine similarity s of their embeddings. Same-class pairs cost 1-s;
// other pairs cost relu(s - Margin). All positive pairs contribute, and
// each negative pair contributes with probability equal to the fraction of
// positive pairs in the batch. The loss is 0.5 times the mean cost over
// contributing pairs.
type SelfSupervisedLoss[B tensor.Backend] struct {
	Margin float64
	rng    *rand.Rand
}

// NewSelfSupervisedLoss creates the loss with DefaultMargin, sampling
// negatives from rng.
func NewSelfSupervisedLoss[B tensor.Backend](rng *rand.Rand) *SelfSupervisedLoss[B] {
	return &SelfSupervisedLoss[B]{Margin: DefaultMargin, rng: rng}
}

// Similarity returns the pairwise cosine similarity (B, N, N) of the
// embedding (B, C, N).
func (l *SelfSupervisedLoss[B]) Similarity(embedding *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	unit := embedding.L2Normalize(1, l2NormEps)
	return unit.Transpose(0, 2, 1).BatchMatMul(unit)
}

// SameClass returns the (B, N, N) indicator of equal targets (B, N).
func (l *SelfSupervisedLoss[B]) SameClass(target *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	ts := target.Shape()
	batch, n := ts[0], ts[1]
	out := tensor.Zeros[float32](tensor.Shape{batch, n, n}, target.Backend())
	dst, labels := out.Data(), target.Data()
	for b := range batch {
		row := labels[b*n : (b+1)*n]
		for i := range n {
			for j := range n {
				if row[i] == row[j] {
					dst[(b*n+i)*n+j] = 1
				}
			}
		}
	}
	return out
}

// Forward returns the loss for embedding (B, C, N) and targets (B, N) as a
// shape-[1] tensor. It is zero when no pair contributes.
func (l *SelfSupervisedLoss[B]) Forward(embedding *tensor.Tensor[float32, B], target *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	es, ts := embedding.Shape(), target.Shape()
	if len(es) != 3 || len(ts) != 2 || es[0] != ts[0] || es[2] != ts[1] {
		panic(fmt.Sprintf("self-supervised loss: embedding %v does not match targets %v", es, ts))
	}
	batch, n := ts[0], ts[1]

	sim := l.Similarity(embedding).Data()
	same := l.SameClass(target).Data()

	positives := 0
	for _, v := range same {
		if v == 1 {
			positives++
		}
	}
	threshold := 1 - float64(positives)/float64(len(same))

	sum, count := 0.0, 0
	for b := range batch {
		for i := range n {
			for j := range n {
				k := (b*n+i)*n + j
				// One draw per pair, diagonal included.
				sampled := l.rng.Float64() > threshold
				if i == j {
					continue
				}
				s := float64(sim[k])
				switch {
				case same[k] == 1:
					sum += 1 - s
				case sampled:
					sum += max(s-l.Margin, 0)
				default:
					continue
				}
				count++
			}
		}
	}

	if count == 0 {
		return tensor.ZerosLike(embedding, tensor.Shape{1})
	}
	return tensor.Scalar(float32(0.5*sum/float64(count)), embedding.Backend())
}
