package eval

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"tabsynth/internal/schema"
	"tabsynth/internal/table"
)

// Task selects the downstream model for the utility score.
type Task string

const (
	TaskClassification Task = "classification"
	TaskRegression     Task = "regression"
)

// Training hyperparameters for the downstream models. Fixed rather than
// configurable: the score compares synthetic to real training data, so
// both sides must use the identical learner.
const (
	trainEpochs   = 300
	trainLearning = 0.1
	trainL2       = 1e-4
)

// ClassScores are the classification metrics of one trained model,
// measured on the held-out real test slice.
type ClassScores struct {
	Accuracy float64 `json:"accuracy"`
	F1       float64 `json:"f1"`
	AUROC    float64 `json:"auroc,omitempty"` // binary tasks only
}

// RegScores are the regression metrics of one trained model.
type RegScores struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// UtilityReport compares a model trained on synthetic data against the
// same model trained on real data, both tested on the same held-out
// slice of real rows. Small deltas mean the synthetic table carries the
// real table's predictive signal.
type UtilityReport struct {
	Task   Task   `json:"task"`
	Target string `json:"target"`
	Seed   int64  `json:"seed"`

	TrainRows int `json:"train_rows"`
	TestRows  int `json:"test_rows"`

	SynthClass *ClassScores `json:"synth_class,omitempty"`
	RealClass  *ClassScores `json:"real_class,omitempty"`
	SynthReg   *RegScores   `json:"synth_reg,omitempty"`
	RealReg    *RegScores   `json:"real_reg,omitempty"`

	// Delta is real-minus-synth on the primary metric (F1 for
	// classification, R2 for regression). Positive means the real-trained
	// model is better.
	Delta float64 `json:"delta"`
}

// Utility runs the train-on-synthetic-test-on-real comparison. The real
// table is split 60/20/20 into train/validation/test, shuffled by seed;
// the synthetic model trains on the full synthetic table. Binary
// classifiers tune their decision threshold for F1 on the validation
// slice.
//
// Errors:
//   - target not found in the schema
//   - task/kind mismatch (regression on a categorical target and so on)
//   - too few rows to split (< 10 real rows)
func Utility(real, synth *table.Table, sch schema.Schema, target string, task Task, seed int64) (*UtilityReport, error) {
	if err := checkShape(real, synth, sch); err != nil {
		return nil, err
	}
	ti := sch.ColumnIndex(target)
	if ti < 0 {
		return nil, fmt.Errorf("eval: target column %q not in schema", target)
	}
	tcol := sch.Columns[ti]
	switch task {
	case TaskClassification:
		if tcol.Kind == schema.Continuous {
			return nil, fmt.Errorf("eval: classification target %q is continuous", target)
		}
	case TaskRegression:
		if tcol.Kind == schema.Categorical || tcol.Kind == schema.Boolean {
			return nil, fmt.Errorf("eval: regression target %q is %s", target, tcol.Kind)
		}
	default:
		return nil, fmt.Errorf("eval: unknown task %q", task)
	}
	if real.NumRows() < 10 {
		return nil, fmt.Errorf("eval: %d real rows is too few to split", real.NumRows())
	}

	train, val, test := splitRows(real.NumRows(), seed)
	enc := fitEncoder(subset(real, train), sch, map[int]bool{ti: true})

	rep := &UtilityReport{
		Task:      task,
		Target:    target,
		Seed:      seed,
		TrainRows: len(train),
		TestRows:  len(test),
	}

	Xtest := encodeRows(enc, real, test, sch)
	Xval := encodeRows(enc, real, val, sch)

	if task == TaskRegression {
		yTrainR, okR := regTargets(real, train, ti)
		yTest, okT := regTargets(real, test, ti)
		yTrainS, okS := regTargetsAll(synth, ti)
		if !okR || !okT || !okS {
			return nil, fmt.Errorf("eval: target %q has unparseable values", target)
		}
		XtrainR := encodeRows(enc, real, train, sch)
		XtrainS := enc.encodeAll(synth, sch)

		rep.RealReg = scoreRegression(trainLinear(XtrainR, yTrainR, seed), Xtest, yTest)
		rep.SynthReg = scoreRegression(trainLinear(XtrainS, yTrainS, seed), Xtest, yTest)
		rep.Delta = rep.RealReg.R2 - rep.SynthReg.R2
		return rep, nil
	}

	labels := tcol.Categories
	if tcol.Kind == schema.Discrete {
		labels = discreteLabels(real, ti)
	}
	if len(labels) < 2 {
		return nil, fmt.Errorf("eval: target %q has fewer than two classes", target)
	}

	yTrainR := classTargets(real, train, ti, tcol, labels)
	yVal := classTargets(real, val, ti, tcol, labels)
	yTest := classTargets(real, test, ti, tcol, labels)
	yTrainS := classTargetsAll(synth, ti, tcol, labels)

	XtrainR := encodeRows(enc, real, train, sch)
	XtrainS := enc.encodeAll(synth, sch)

	rep.RealClass = scoreClassifier(XtrainR, yTrainR, Xval, yVal, Xtest, yTest, len(labels), seed)
	rep.SynthClass = scoreClassifier(XtrainS, yTrainS, Xval, yVal, Xtest, yTest, len(labels), seed)
	rep.Delta = rep.RealClass.F1 - rep.SynthClass.F1
	return rep, nil
}

// splitRows shuffles 0..n-1 by seed and cuts 60/20/20.
func splitRows(n int, seed int64) (train, val, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	a := n * 6 / 10
	b := n * 8 / 10
	return idx[:a], idx[a:b], idx[b:]
}

func subset(t *table.Table, rows []int) *table.Table {
	out := table.New(t.Columns)
	out.Rows = make([][]any, len(rows))
	for i, r := range rows {
		out.Rows[i] = t.Rows[r]
	}
	return out
}

func encodeRows(enc *encoder, t *table.Table, rows []int, sch schema.Schema) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = enc.encode(t.Rows[r], sch)
	}
	return out
}

func regTargets(t *table.Table, rows []int, col int) ([]float64, bool) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		f, ok := table.ParseFloat(t.Rows[r][col])
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func regTargetsAll(t *table.Table, col int) ([]float64, bool) {
	rows := make([]int, t.NumRows())
	for i := range rows {
		rows[i] = i
	}
	return regTargets(t, rows, col)
}

// discreteLabels enumerates a discrete target's observed values in
// ascending numeric order so both tables agree on class indices.
func discreteLabels(t *table.Table, col int) []string {
	seen := map[float64]bool{}
	var vals []float64
	for _, row := range t.Rows {
		if f, ok := table.ParseFloat(row[col]); ok && !seen[f] {
			seen[f] = true
			vals = append(vals, f)
		}
	}
	sort.Float64s(vals)
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = table.Format(int64(math.Round(v)))
	}
	return out
}

// classTargets maps target cells to class indices; unknown labels map
// to class 0 rather than failing (the synthetic side cannot invent
// labels, but real test data may hold rarities absent from training).
func classTargets(t *table.Table, rows []int, col int, tcol schema.Column, labels []string) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = classIndex(tcol, t.Rows[r][col], labels)
	}
	return out
}

func classTargetsAll(t *table.Table, col int, tcol schema.Column, labels []string) []int {
	rows := make([]int, t.NumRows())
	for i := range rows {
		rows[i] = i
	}
	return classTargets(t, rows, col, tcol, labels)
}

func classIndex(tcol schema.Column, cell any, labels []string) int {
	s := canonicalLabel(tcol, cell)
	if tcol.Kind == schema.Discrete {
		if f, ok := table.ParseFloat(cell); ok {
			s = table.Format(int64(math.Round(f)))
		}
	}
	for j, l := range labels {
		if l == s {
			return j
		}
	}
	return 0
}

// ----------------------------------------------------------------------
// downstream learners: logistic and linear regression by batch gradient
// descent with L2 regularization
// ----------------------------------------------------------------------

type linearModel struct {
	w []float64
	b float64
}

func (m *linearModel) raw(x []float64) float64 {
	s := m.b
	for i, xi := range x {
		s += m.w[i] * xi
	}
	return s
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

// trainLogistic fits a binary logistic model on {0,1} targets.
func trainLogistic(X [][]float64, y []float64, seed int64) *linearModel {
	return gradientDescent(X, y, seed, func(z float64) float64 { return sigmoid(z) })
}

// trainLinear fits ordinary least squares by the same descent loop.
func trainLinear(X [][]float64, y []float64, seed int64) *linearModel {
	return gradientDescent(X, y, seed, func(z float64) float64 { return z })
}

// gradientDescent runs full-batch descent. For both losses the gradient
// of the per-row error is (pred - y) * x, so one loop serves both.
func gradientDescent(X [][]float64, y []float64, seed int64, link func(float64) float64) *linearModel {
	if len(X) == 0 {
		return &linearModel{w: nil}
	}
	d := len(X[0])
	m := &linearModel{w: make([]float64, d)}
	rng := rand.New(rand.NewSource(seed))
	for i := range m.w {
		m.w[i] = rng.NormFloat64() * 0.01
	}
	n := float64(len(X))
	grad := make([]float64, d)
	for epoch := 0; epoch < trainEpochs; epoch++ {
		for i := range grad {
			grad[i] = 0
		}
		var gb float64
		for r, x := range X {
			e := link(m.raw(x)) - y[r]
			for i, xi := range x {
				grad[i] += e * xi
			}
			gb += e
		}
		for i := range m.w {
			m.w[i] -= trainLearning * (grad[i]/n + trainL2*m.w[i])
		}
		m.b -= trainLearning * gb / n
	}
	return m
}

// scoreClassifier trains and scores one classifier. Binary targets use a
// single logistic model with an F1-tuned threshold from the validation
// slice and report AUROC; multiclass targets use one-vs-rest argmax.
func scoreClassifier(Xtrain [][]float64, ytrain []int, Xval [][]float64, yval []int, Xtest [][]float64, ytest []int, classes int, seed int64) *ClassScores {
	if classes == 2 {
		yb := make([]float64, len(ytrain))
		for i, c := range ytrain {
			if c == 1 {
				yb[i] = 1
			}
		}
		m := trainLogistic(Xtrain, yb, seed)

		valScores := make([]float64, len(Xval))
		for i, x := range Xval {
			valScores[i] = sigmoid(m.raw(x))
		}
		threshold := tuneThreshold(valScores, yval)

		testScores := make([]float64, len(Xtest))
		pred := make([]int, len(Xtest))
		for i, x := range Xtest {
			testScores[i] = sigmoid(m.raw(x))
			if testScores[i] >= threshold {
				pred[i] = 1
			}
		}
		return &ClassScores{
			Accuracy: accuracy(pred, ytest),
			F1:       macroF1(pred, ytest, classes),
			AUROC:    auroc(testScores, ytest),
		}
	}

	// One-vs-rest: a logistic model per class, argmax at predict time.
	models := make([]*linearModel, classes)
	for c := 0; c < classes; c++ {
		yb := make([]float64, len(ytrain))
		for i, yc := range ytrain {
			if yc == c {
				yb[i] = 1
			}
		}
		models[c] = trainLogistic(Xtrain, yb, seed+int64(c))
	}
	pred := make([]int, len(Xtest))
	for i, x := range Xtest {
		best, bestScore := 0, math.Inf(-1)
		for c, m := range models {
			if s := m.raw(x); s > bestScore {
				best, bestScore = c, s
			}
		}
		pred[i] = best
	}
	return &ClassScores{
		Accuracy: accuracy(pred, ytest),
		F1:       macroF1(pred, ytest, classes),
	}
}

// tuneThreshold scans candidate cutoffs and keeps the one with the best
// binary F1 on the validation labels.
func tuneThreshold(scores []float64, y []int) float64 {
	best, bestF1 := 0.5, -1.0
	for t := 0.05; t < 1; t += 0.05 {
		pred := make([]int, len(scores))
		for i, s := range scores {
			if s >= t {
				pred[i] = 1
			}
		}
		if f := binaryF1(pred, y); f > bestF1 {
			best, bestF1 = t, f
		}
	}
	return best
}

func accuracy(pred, y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	hit := 0
	for i := range y {
		if pred[i] == y[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(y))
}

func binaryF1(pred, y []int) float64 {
	var tp, fp, fn float64
	for i := range y {
		switch {
		case pred[i] == 1 && y[i] == 1:
			tp++
		case pred[i] == 1 && y[i] == 0:
			fp++
		case pred[i] == 0 && y[i] == 1:
			fn++
		}
	}
	if tp == 0 {
		return 0
	}
	p := tp / (tp + fp)
	r := tp / (tp + fn)
	return 2 * p * r / (p + r)
}

// macroF1 averages the per-class F1 over classes present in the truth.
func macroF1(pred, y []int, classes int) float64 {
	var sum float64
	var present int
	for c := 0; c < classes; c++ {
		var tp, fp, fn float64
		seen := false
		for i := range y {
			if y[i] == c {
				seen = true
			}
			switch {
			case pred[i] == c && y[i] == c:
				tp++
			case pred[i] == c && y[i] != c:
				fp++
			case pred[i] != c && y[i] == c:
				fn++
			}
		}
		if !seen {
			continue
		}
		present++
		if tp > 0 {
			p := tp / (tp + fp)
			r := tp / (tp + fn)
			sum += 2 * p * r / (p + r)
		}
	}
	if present == 0 {
		return 0
	}
	return sum / float64(present)
}

// auroc computes the area under the ROC curve by the rank-sum identity,
// averaging ranks across tied scores.
func auroc(scores []float64, y []int) float64 {
	type sc struct {
		s float64
		y int
	}
	items := make([]sc, len(scores))
	for i := range scores {
		items[i] = sc{scores[i], y[i]}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].s < items[j].s })

	ranks := make([]float64, len(items))
	for i := 0; i < len(items); {
		j := i
		for j < len(items) && items[j].s == items[i].s {
			j++
		}
		avg := float64(i+j+1) / 2 // 1-based average rank of the tie group
		for k := i; k < j; k++ {
			ranks[k] = avg
		}
		i = j
	}

	var pos, rankSum float64
	for i, it := range items {
		if it.y == 1 {
			pos++
			rankSum += ranks[i]
		}
	}
	neg := float64(len(items)) - pos
	if pos == 0 || neg == 0 {
		return 0
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}

// scoreRegression evaluates a linear model on held-out targets.
func scoreRegression(m *linearModel, X [][]float64, y []float64) *RegScores {
	n := float64(len(y))
	if n == 0 {
		return &RegScores{}
	}
	var se, ae, mean float64
	for _, v := range y {
		mean += v
	}
	mean /= n
	var tss float64
	for i, x := range X {
		e := m.raw(x) - y[i]
		se += e * e
		ae += math.Abs(e)
		d := y[i] - mean
		tss += d * d
	}
	r2 := 0.0
	if tss > 1e-12 {
		r2 = 1 - se/tss
	}
	return &RegScores{
		RMSE: math.Sqrt(se / n),
		MAE:  ae / n,
		R2:   r2,
	}
}
