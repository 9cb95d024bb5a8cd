package tracking

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/itu-sdse/housing-estimator/pkg/log"
)

// Autologger records grid-search candidates to a tracking run as they are
// evaluated. It satisfies the trainer's trial-recorder contract.
//
// Recording is observational: failures are logged as warnings and never
// surface to the search.
type Autologger struct {
	ctx    context.Context
	client Client
	run    *Run
	logger log.Logger
}

// NewAutologger creates an autologger bound to a run.
func NewAutologger(ctx context.Context, client Client, run *Run, logger log.Logger) *Autologger {
	if logger == nil {
		logger = log.Nop()
	}
	return &Autologger{ctx: ctx, client: client, run: run, logger: logger}
}

// RecordTrial logs one candidate's parameters and cross-validation scores.
func (a *Autologger) RecordTrial(index int, params map[string]float64, meanScore float64, foldScores []float64) {
	batchParams := make([]Param, 0, len(params))
	for _, key := range sortedKeys(params) {
		batchParams = append(batchParams, Param{
			Key:   fmt.Sprintf("candidate_%d.%s", index, key),
			Value: strconv.FormatFloat(params[key], 'g', -1, 64),
		})
	}
	batchMetrics := []Metric{{Key: "mean_cv_r2", Value: meanScore, Step: int64(index)}}
	for fold, score := range foldScores {
		batchMetrics = append(batchMetrics, Metric{
			Key:   fmt.Sprintf("cv_fold%d_r2", fold),
			Value: score,
			Step:  int64(index),
		})
	}

	if err := a.client.LogBatch(a.ctx, a.run.ID, batchParams, batchMetrics); err != nil {
		a.logger.Warn("autolog batch failed",
			log.RunIDKey, a.run.ID,
			"candidate", index,
			log.ErrAttrKey, err,
		)
	}
}

// RecordBest logs the winning candidate's parameters and score.
func (a *Autologger) RecordBest(params map[string]float64, bestScore float64) {
	for _, key := range sortedKeys(params) {
		if err := a.client.LogParam(a.ctx, a.run.ID, "best_"+key,
			strconv.FormatFloat(params[key], 'g', -1, 64)); err != nil {
			a.logger.Warn("autolog best param failed", log.RunIDKey, a.run.ID, log.ErrAttrKey, err)
		}
	}
	if err := a.client.LogMetric(a.ctx, a.run.ID, "best_cv_r2", bestScore, 0); err != nil {
		a.logger.Warn("autolog best metric failed", log.RunIDKey, a.run.ID, log.ErrAttrKey, err)
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
