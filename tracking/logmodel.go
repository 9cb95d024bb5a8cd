package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"

	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/pkg/errors"
	"github.com/itu-sdse/housing-estimator/pkg/log"
)

// Model is what the model logger needs from a fitted estimator.
type Model interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
	Save(w io.Writer) error
}

// LogModel computes predictions on XTrain, infers the model signature,
// stores the serialized model under artifactPath, and registers it under
// registeredModelName.
//
// Argument validation failures propagate. Every failure after validation is
// logged as a warning and swallowed: the fitted model in memory is the
// valuable output, and recording it is best-effort. This catch must stay
// confined to this boundary; every other stage fails fast.
func LogModel(ctx context.Context, client Client, run *Run, fittedModel Model,
	XTrain mat.Matrix, featureNames []string, artifactPath, registeredModelName string,
	logger log.Logger) error {

	if artifactPath == "" {
		return errors.NewValidationError("artifact_path", "must not be empty", artifactPath)
	}
	if registeredModelName == "" {
		return errors.NewValidationError("registered_model_name", "must not be empty", registeredModelName)
	}
	if fittedModel == nil {
		return errors.NewValidationError("fitted_model", "must not be nil", nil)
	}
	if client == nil || run == nil {
		return errors.NewValidationError("run", "tracking client and run must not be nil", nil)
	}
	if logger == nil {
		logger = log.Nop()
	}

	if err := logModel(ctx, client, run, fittedModel, XTrain, featureNames, artifactPath, registeredModelName, logger); err != nil {
		logger.Warn("model logging failed; continuing without registration",
			log.OperationKey, "log_model",
			log.RunIDKey, run.ID,
			log.ErrAttrKey, err,
		)
	}
	return nil
}

func logModel(ctx context.Context, client Client, run *Run, fittedModel Model,
	XTrain mat.Matrix, featureNames []string, artifactPath, registeredModelName string,
	logger log.Logger) error {

	predictions, err := fittedModel.Predict(XTrain)
	if err != nil {
		return errors.Wrap(err, "predict on training partition")
	}
	signature := InferSignature(featureNames, XTrain, predictions)

	var modelBuf bytes.Buffer
	if err := fittedModel.Save(&modelBuf); err != nil {
		return errors.Wrap(err, "serialize model")
	}

	metadata, err := json.MarshalIndent(map[string]interface{}{
		"artifact_path": artifactPath,
		"flavor":        "housing-estimator/pipeline",
		"signature":     signature,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal model metadata")
	}

	if err := client.LogArtifact(ctx, run.ID, path.Join(artifactPath, "model.json"), modelBuf.Bytes()); err != nil {
		return errors.Wrap(err, "store model artifact")
	}
	if err := client.LogArtifact(ctx, run.ID, path.Join(artifactPath, "MLmodel"), metadata); err != nil {
		return errors.Wrap(err, "store model metadata")
	}

	version, err := client.RegisterModel(ctx, run.ID, artifactPath, registeredModelName)
	if err != nil {
		return errors.Wrap(err, "register model")
	}

	logger.Info("model logged",
		log.OperationKey, "log_model",
		log.RunIDKey, run.ID,
		"artifact_path", artifactPath,
		log.ModelNameKey, version.Name,
		"version", version.Version,
	)
	return nil
}
