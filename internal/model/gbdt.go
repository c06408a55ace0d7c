package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/wonny/stockout/internal/evaluation"
)

// Dataset pairs a feature matrix with 0/1 labels
type Dataset struct {
	X *mat.Dense
	Y []float64
}

// Rows returns the number of rows, 0 for an empty dataset
func (d *Dataset) Rows() int {
	if d == nil || d.X == nil {
		return 0
	}
	r, _ := d.X.Dims()
	return r
}

// Node is one tree node. Internal nodes send a row left when
// row[Feature] <= Threshold; leaves carry Value (already scaled by the learning rate).
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`

	bin int // training only
}

// Tree is a flat binary tree, root at index 0
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(row []float64) float64 {
	i := 0
	for !t.Nodes[i].Leaf {
		n := &t.Nodes[i]
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

func (t *Tree) predictBinned(bins [][]uint16, r int) float64 {
	i := 0
	for !t.Nodes[i].Leaf {
		n := &t.Nodes[i]
		if int(bins[n.Feature][r]) <= n.bin {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// NumLeaves counts leaf nodes
func (t *Tree) NumLeaves() int {
	c := 0
	for _, n := range t.Nodes {
		if n.Leaf {
			c++
		}
	}
	return c
}

// Booster is a binary gradient-boosted tree ensemble
type Booster struct {
	Features      []string `json:"feature_names"`
	InitScore     float64  `json:"init_score"`
	Trees         []Tree   `json:"trees"`
	BestIteration int      `json:"best_iteration"`
	Params        Params   `json:"params"`
}

// RawScore returns the log-odds for one row
func (b *Booster) RawScore(row []float64) float64 {
	s := b.InitScore
	for i := range b.Trees {
		s += b.Trees[i].predict(row)
	}
	return s
}

// Predict returns the stock-out probability for one row
func (b *Booster) Predict(row []float64) float64 {
	return sigmoid(b.RawScore(row))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// =============================================================================
// Training
// =============================================================================

type histBin struct {
	g, h float64
	c    int
}

// histogram holds per-feature gradient histograms; unsampled features are nil
type histogram [][]histBin

type splitInfo struct {
	ok      bool
	gain    float64
	feature int
	bin     int
}

type leaf struct {
	node  int
	rows  []int
	g, h  float64
	depth int
	hist  histogram
	split splitInfo
}

type trainer struct {
	params     Params
	log        zerolog.Logger
	rng        *rand.Rand
	n, nf      int
	thresholds [][]float64
	bins       [][]uint16 // [feature][row]
	grad, hess []float64
}

// Train fits a gradient-boosted tree ensemble with a histogram, leaf-wise
// learner. With a non-empty valid set it stops after EarlyStoppingRounds
// rounds without validation AUC improvement and keeps the best iteration.
func Train(train Dataset, valid *Dataset, features []string, params Params, log zerolog.Logger) (*Booster, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	n := train.Rows()
	if n == 0 {
		return nil, fmt.Errorf("training set is empty")
	}
	_, nf := train.X.Dims()
	if len(train.Y) != n {
		return nil, fmt.Errorf("training set has %d rows but %d labels", n, len(train.Y))
	}
	if len(features) != nf {
		return nil, fmt.Errorf("training set has %d columns but %d feature names", nf, len(features))
	}

	log = log.With().Str("component", "model.trainer").Logger()
	t := &trainer{
		params: params,
		log:    log,
		rng:    rand.New(rand.NewSource(params.Seed)),
		n:      n,
		nf:     nf,
		grad:   make([]float64, n),
		hess:   make([]float64, n),
	}
	t.binColumns(train.X)

	booster := &Booster{
		Features:  append([]string(nil), features...),
		InitScore: initScore(train.Y),
		Params:    params,
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = booster.InitScore
	}

	useValid := valid.Rows() > 0
	var validRows [][]float64
	var validScores []float64
	if useValid {
		vr, vc := valid.X.Dims()
		if vc != nf || len(valid.Y) != vr {
			return nil, fmt.Errorf("validation set shape %dx%d does not match %d features / %d labels", vr, vc, nf, len(valid.Y))
		}
		validRows = make([][]float64, vr)
		validScores = make([]float64, vr)
		for i := range validRows {
			validRows[i] = mat.Row(nil, i, valid.X)
			validScores[i] = booster.InitScore
		}
	}

	bestAUC := math.Inf(-1)
	bestIter, stale := 0, 0

	for iter := 1; iter <= params.NumBoostRound; iter++ {
		t.gradients(scores, train.Y)
		tree := t.growTree(t.sampleRows(), t.sampleFeatures())
		booster.Trees = append(booster.Trees, tree)

		for r := 0; r < n; r++ {
			scores[r] += tree.predictBinned(t.bins, r)
		}

		if !useValid {
			if params.VerboseEval > 0 && iter%params.VerboseEval == 0 {
				log.Info().Int("round", iter).Msg("training progress")
			}
			continue
		}

		for i, row := range validRows {
			validScores[i] += tree.predict(row)
		}
		// AUC only depends on ranking, raw scores are enough
		auc := evaluation.ROCAUC(validScores, valid.Y)
		if math.IsNaN(auc) {
			log.Warn().Msg("validation set holds a single class, early stopping disabled")
			useValid = false
			continue
		}

		if auc > bestAUC {
			bestAUC, bestIter, stale = auc, iter, 0
		} else {
			stale++
		}

		if params.VerboseEval > 0 && iter%params.VerboseEval == 0 {
			log.Info().Int("round", iter).Float64("valid_auc", auc).Msg("training progress")
		}

		if params.EarlyStoppingRounds > 0 && stale >= params.EarlyStoppingRounds {
			log.Info().
				Int("best_iteration", bestIter).
				Float64("best_valid_auc", bestAUC).
				Msg("early stopping")
			break
		}
	}

	if bestIter > 0 && useValid {
		booster.Trees = booster.Trees[:bestIter]
	}
	booster.BestIteration = len(booster.Trees)

	log.Info().
		Int("trees", len(booster.Trees)).
		Int("rows", n).
		Int("features", nf).
		Msg("training finished")

	return booster, nil
}

// initScore starts boosting from the base rate log-odds
func initScore(y []float64) float64 {
	var pos float64
	for _, v := range y {
		pos += v
	}
	p := pos / float64(len(y))
	p = math.Min(math.Max(p, 1e-15), 1-1e-15)
	return math.Log(p / (1 - p))
}

// binColumns quantizes every column into at most MaxBin bins
func (t *trainer) binColumns(X *mat.Dense) {
	t.thresholds = make([][]float64, t.nf)
	t.bins = make([][]uint16, t.nf)
	for j := 0; j < t.nf; j++ {
		col := mat.Col(nil, j, X)
		th := binThresholds(col, t.params.MaxBin)
		b := make([]uint16, t.n)
		for i, v := range col {
			b[i] = uint16(sort.SearchFloat64s(th, v))
		}
		t.thresholds[j] = th
		t.bins[j] = b
	}
}

// binThresholds returns ascending cut points; bin k holds values <= th[k]
func binThresholds(col []float64, maxBin int) []float64 {
	sorted := append([]float64(nil), col...)
	sort.Float64s(sorted)

	uniq := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			uniq = append(uniq, v)
		}
	}

	if len(uniq) <= maxBin {
		th := make([]float64, 0, len(uniq))
		for i := 0; i+1 < len(uniq); i++ {
			th = append(th, (uniq[i]+uniq[i+1])/2)
		}
		return th
	}

	th := make([]float64, 0, maxBin-1)
	for b := 1; b < maxBin; b++ {
		v := sorted[b*len(sorted)/maxBin]
		if len(th) == 0 || v > th[len(th)-1] {
			th = append(th, v)
		}
	}
	return th
}

// gradients of the binary log-loss
func (t *trainer) gradients(scores, y []float64) {
	for i, s := range scores {
		p := sigmoid(s)
		t.grad[i] = p - y[i]
		t.hess[i] = p * (1 - p)
	}
}

func (t *trainer) sampleRows() []int {
	rows := make([]int, 0, t.n)
	for r := 0; r < t.n; r++ {
		if t.params.BaggingFraction >= 1 || t.rng.Float64() < t.params.BaggingFraction {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, t.rng.Intn(t.n))
	}
	return rows
}

func (t *trainer) sampleFeatures() []int {
	k := int(math.Round(t.params.FeatureFraction * float64(t.nf)))
	if k < 1 {
		k = 1
	}
	feats := t.rng.Perm(t.nf)[:k]
	sort.Ints(feats)
	return feats
}

// growTree grows one tree leaf-wise: always split the leaf with the best gain
func (t *trainer) growTree(rows, feats []int) Tree {
	tree := Tree{Nodes: []Node{{Leaf: true}}}
	leaves := []*leaf{t.newLeaf(0, rows, 0, t.buildHist(rows, feats), feats)}

	for len(leaves) < t.params.NumLeaves {
		best := -1
		for i, l := range leaves {
			if l.split.ok && (best < 0 || l.split.gain > leaves[best].split.gain) {
				best = i
			}
		}
		if best < 0 {
			break
		}

		l := leaves[best]
		sp := l.split
		var left, right []int
		for _, r := range l.rows {
			if int(t.bins[sp.feature][r]) <= sp.bin {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}

		leftIdx := len(tree.Nodes)
		tree.Nodes = append(tree.Nodes, Node{Leaf: true}, Node{Leaf: true})
		node := &tree.Nodes[l.node]
		node.Leaf = false
		node.Feature = sp.feature
		node.bin = sp.bin
		node.Threshold = t.thresholds[sp.feature][sp.bin]
		node.Left = leftIdx
		node.Right = leftIdx + 1

		// build the smaller child, derive the larger one from the parent
		var lh, rh histogram
		if len(left) <= len(right) {
			lh = t.buildHist(left, feats)
			rh = subtractHist(l.hist, lh)
		} else {
			rh = t.buildHist(right, feats)
			lh = subtractHist(l.hist, rh)
		}

		leaves[best] = t.newLeaf(leftIdx, left, l.depth+1, lh, feats)
		leaves = append(leaves, t.newLeaf(leftIdx+1, right, l.depth+1, rh, feats))
	}

	for _, l := range leaves {
		tree.Nodes[l.node].Value = t.leafValue(l.g, l.h)
	}
	return tree
}

func (t *trainer) leafValue(g, h float64) float64 {
	d := h + t.params.LambdaL2
	if d <= 0 {
		return 0
	}
	return -g / d * t.params.LearningRate
}

func (t *trainer) newLeaf(node int, rows []int, depth int, hist histogram, feats []int) *leaf {
	l := &leaf{node: node, rows: rows, depth: depth, hist: hist}
	for _, r := range rows {
		l.g += t.grad[r]
		l.h += t.hess[r]
	}

	depthOK := t.params.MaxDepth <= 0 || depth < t.params.MaxDepth
	if depthOK && len(rows) >= 2*t.params.MinDataInLeaf {
		l.split = t.bestSplit(hist, l.g, l.h, len(rows), feats)
	}
	return l
}

func (t *trainer) buildHist(rows, feats []int) histogram {
	hist := make(histogram, t.nf)
	for _, f := range feats {
		arr := make([]histBin, len(t.thresholds[f])+1)
		bins := t.bins[f]
		for _, r := range rows {
			b := &arr[bins[r]]
			b.g += t.grad[r]
			b.h += t.hess[r]
			b.c++
		}
		hist[f] = arr
	}
	return hist
}

func subtractHist(parent, child histogram) histogram {
	out := make(histogram, len(parent))
	for f, arr := range parent {
		if arr == nil {
			continue
		}
		diff := make([]histBin, len(arr))
		for b := range arr {
			diff[b] = histBin{
				g: arr[b].g - child[f][b].g,
				h: arr[b].h - child[f][b].h,
				c: arr[b].c - child[f][b].c,
			}
		}
		out[f] = diff
	}
	return out
}

func (t *trainer) bestSplit(hist histogram, g, h float64, count int, feats []int) splitInfo {
	lambda := t.params.LambdaL2
	minData := t.params.MinDataInLeaf
	minHess := t.params.MinSumHessian
	parent := g * g / (h + lambda)

	var best splitInfo
	for _, f := range feats {
		arr := hist[f]
		var gl, hl float64
		cl := 0
		for b := 0; b+1 < len(arr); b++ {
			gl += arr[b].g
			hl += arr[b].h
			cl += arr[b].c
			if cl < minData || cl == 0 {
				continue
			}
			cr := count - cl
			if cr < minData || cr == 0 {
				break
			}
			hr := h - hl
			if hl < minHess || hr < minHess {
				continue
			}
			gr := g - gl
			gain := gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parent
			if gain > best.gain {
				best = splitInfo{ok: true, gain: gain, feature: f, bin: b}
			}
		}
	}
	return best
}
