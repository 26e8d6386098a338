// Package pointnet implements a PointNet++ multi-scale-grouping network for
// per-point part segmentation, together with its auxiliary losses.
//
// The network is an encoder-decoder over irregular point sets:
//   - SetAbstractionMSG: farthest point sampling, ball-query grouping at
//     several radii, shared MLP and max-pooling per neighbourhood
//   - SetAbstraction: the group-all stage producing one global descriptor
//   - FeaturePropagation: inverse-distance 3-NN interpolation back to finer
//     levels with skip connections
//   - SegmentationHead: per-point log-probabilities and the embedding map
//
// Model.Forward additionally runs at most one auxiliary loss per call,
// chosen by ForwardOptions: a convex-decomposition loss weighted by a
// decaying BetaSchedule, a generate-and-compare reconstruction loss, or
// none. PartLoss and SelfSupervisedLoss are standalone training losses.
//
// Tensors are channel-first: points are (B, C, N), features (B, C, N).
package pointnet
