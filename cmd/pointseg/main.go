// Package main provides the pointseg CLI.
//
// Usage:
//
//	pointseg version
//	pointseg forward [-config run.json] [-points cloud.txt] [-category 0] [-convex] [-reconstruct]
//	pointseg cluster [-config run.json] [-points cloud.txt] [-category 0]
//
// Without -points a unit sphere is sampled.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/born-ml/pointseg/internal/backend/cpu"
	"github.com/born-ml/pointseg/internal/cluster"
	"github.com/born-ml/pointseg/internal/config"
	"github.com/born-ml/pointseg/internal/nn"
	"github.com/born-ml/pointseg/internal/pointcloud"
	"github.com/born-ml/pointseg/internal/pointnet"
	"github.com/born-ml/pointseg/internal/reconstruct"
	"github.com/born-ml/pointseg/internal/tensor"
)

const version = "v0.1.0-dev"

type backend = *cpu.CPUBackend

func main() {
	log.SetFlags(0)
	log.SetPrefix("pointseg: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("pointseg %s\n", version)
	case "forward":
		err = runForward(os.Args[2:])
	case "cluster":
		err = runCluster(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Println("pointseg - PointNet++ part segmentation")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  forward    Run one forward pass and report predictions and losses")
	fmt.Println("  cluster    Cluster the per-point embedding with k-means")
}

// runFlags are shared by forward and cluster.
type runFlags struct {
	config   *string
	points   *string
	category *int
	npoints  *int
	batch    *int
	seed     *int64
	eval     *bool
}

func registerRunFlags(fs *flag.FlagSet) runFlags {
	return runFlags{
		config:   fs.String("config", "", "JSON run configuration"),
		points:   fs.String("points", "", "point cloud text file (x y z [nx ny nz] [label])"),
		category: fs.Int("category", 0, "object category index in [0, 16)"),
		npoints:  fs.Int("npoints", 1024, "points sampled per cloud"),
		batch:    fs.Int("batch", 1, "clouds per batch"),
		seed:     fs.Int64("seed", 1, "sampling seed"),
		eval:     fs.Bool("eval", true, "run in evaluation mode"),
	}
}

// session is a model ready to run on a prepared batch.
type session struct {
	run        *config.RunConfig
	model      *pointnet.Model[backend]
	points     *tensor.Tensor[float32, backend]
	categories *tensor.Tensor[int32, backend]
	labels     *tensor.Tensor[int32, backend] // nil when the input has no part labels
	rng        *rand.Rand
}

func newSession(f runFlags, withReconstruction bool) (*session, error) {
	if *f.npoints < 1 {
		return nil, fmt.Errorf("-npoints must be positive, got %d", *f.npoints)
	}
	if *f.batch < 1 {
		return nil, fmt.Errorf("-batch must be positive, got %d", *f.batch)
	}

	run := &config.RunConfig{}
	if *f.config != "" {
		var err error
		if run, err = config.Load(*f.config); err != nil {
			return nil, err
		}
	}

	b := cpu.New()
	cfg := pointnet.DefaultConfig(50, false)
	run.ApplyModel(&cfg)

	rng := rand.New(rand.NewSource(*f.seed))
	opts := []pointnet.Option[backend]{
		pointnet.WithRand[backend](rng),
		pointnet.WithConvexLoss[backend](pointnet.ConvexLossFunc[backend](embeddingSpread)),
	}
	if withReconstruction {
		gcfg := reconstruct.DefaultGeneratorConfig(cfg.EmbeddingChannels())
		run.ApplyGenerator(&gcfg)
		gen, err := reconstruct.NewGenerator(gcfg, b)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pointnet.WithReconstruction[backend](gen, reconstruct.NewChamferDistance[backend]()))
	}
	model, err := pointnet.NewModel(cfg, b, opts...)
	if err != nil {
		return nil, err
	}
	model.SetTraining(!*f.eval)

	clouds, err := loadClouds(f, cfg.NormalChannel, rng)
	if err != nil {
		return nil, err
	}
	points, err := pointcloud.Batch(clouds, cfg.NormalChannel, b)
	if err != nil {
		return nil, err
	}

	cats := make([]int32, len(clouds))
	for i := range cats {
		cats[i] = int32(*f.category)
	}
	categories, err := tensor.FromSlice(cats, tensor.Shape{len(cats)}, b)
	if err != nil {
		return nil, err
	}

	var labels *tensor.Tensor[int32, backend]
	if clouds[0].Labels != nil {
		if labels, err = pointcloud.BatchLabels(clouds, cfg.NumParts, b); err != nil {
			return nil, err
		}
	}

	log.Printf("model: %d parts, normals=%v, %d parameters", cfg.NumParts, cfg.NormalChannel, nn.CountParameters(model.Parameters()))
	return &session{run: run, model: model, points: points, categories: categories, labels: labels, rng: rng}, nil
}

func loadClouds(f runFlags, normals bool, rng *rand.Rand) ([]*pointcloud.Cloud, error) {
	var source *pointcloud.Cloud
	if *f.points == "" {
		source = pointcloud.Sphere(*f.npoints, rng)
	} else {
		c, err := pointcloud.ReadFile(*f.points)
		if err != nil {
			return nil, err
		}
		if normals && c.Normals == nil {
			return nil, fmt.Errorf("%s has no normals but normal_channel is set", *f.points)
		}
		c.Normalize()
		source = c
	}

	clouds := make([]*pointcloud.Cloud, *f.batch)
	for i := range clouds {
		clouds[i] = source.Resample(*f.npoints, rng)
	}
	return clouds, nil
}

func runForward(args []string) error {
	fs := flag.NewFlagSet("forward", flag.ExitOnError)
	f := registerRunFlags(fs)
	convex := fs.Bool("convex", false, "run the convex-decomposition auxiliary loss")
	recon := fs.Bool("reconstruct", false, "run the reconstruction auxiliary loss")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := newSession(f, *recon)
	if err != nil {
		return err
	}

	opts := pointnet.DefaultForwardOptions[backend]()
	opts.IncludeConvexLoss = *convex
	opts.Reconstruct = *recon
	s.run.ApplyConvex(&opts.Convex)

	out, err := s.model.Forward(s.points, s.categories, opts)
	if err != nil {
		return err
	}

	fmt.Printf("predictions: %v\n", out.Predictions.Shape())
	fmt.Printf("embedding:   %v\n", out.Embedding.Shape())
	fmt.Printf("branch:      %s\n", out.Branch)
	fmt.Printf("total loss:  %.6f\n", out.TotalLoss.Item())
	fmt.Printf("chamfer:     %.6f\n", out.ChamferLoss.Item())
	if out.Branch == pointnet.BranchConvex {
		fmt.Printf("beta:        %.6f (%s)\n", s.model.Beta().Value(), s.model.Beta().State())
	}

	for b, parts := range argmaxParts(out.Predictions) {
		fmt.Printf("cloud %d part histogram: %v\n", b, cluster.Histogram(parts))
	}

	if s.labels != nil {
		part := pointnet.NewPartLoss(s.model.Backend()).Forward(out.Predictions, s.labels)
		contrastive := pointnet.NewSelfSupervisedLoss[backend](s.rng).Forward(out.Embedding, s.labels)
		fmt.Printf("part loss:   %.6f\n", part.Item())
		fmt.Printf("contrastive: %.6f\n", contrastive.Item())
	}
	return nil
}

func runCluster(args []string) error {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	f := registerRunFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := newSession(f, false)
	if err != nil {
		return err
	}
	knobs := pointnet.DefaultConvexOptions()
	s.run.ApplyConvex(&knobs)

	out, err := s.model.Forward(s.points, s.categories, pointnet.DefaultForwardOptions[backend]())
	if err != nil {
		return err
	}
	labels, err := cluster.Partition(out.Embedding, knobs.MaxNumClusters)
	if err != nil {
		return err
	}
	for b, l := range labels {
		fmt.Printf("cloud %d cluster sizes: %v\n", b, cluster.Histogram(l))
	}
	return nil
}

// embeddingSpread stands in for a convex-decomposition loss: beta times the
// mean per-channel variance of the embedding across points.
func embeddingSpread(req pointnet.ConvexRequest[backend]) (total, chamfer *tensor.Tensor[float32, backend], err error) {
	centred := req.Embedding.Sub(req.Embedding.MeanDim(2, true))
	total = centred.Mul(centred).Mean().MulScalar(req.Beta)
	chamfer = tensor.ZerosLike(req.Embedding, tensor.Shape{1})
	return total, chamfer, nil
}

// argmaxParts returns the most likely part per point from (B, N, P) log-probabilities.
func argmaxParts(pred *tensor.Tensor[float32, backend]) [][]int {
	shape := pred.Shape()
	batch, n, parts := shape[0], shape[1], shape[2]
	data := pred.Data()
	out := make([][]int, batch)
	for b := range batch {
		out[b] = make([]int, n)
		for i := range n {
			row := data[(b*n+i)*parts : (b*n+i+1)*parts]
			best := 0
			for p, v := range row {
				if v > row[best] {
					best = p
				}
			}
			out[b][i] = best
		}
	}
	return out
}
