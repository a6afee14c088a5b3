package model

import (
	"encoding/json"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// SummaryVersion is written into every ModelSummary.
const SummaryVersion = "1.0.0"

// ModelSummary はモデルの構造とメタデータを表す構造体（JSON出力用）
type ModelSummary struct {
	// ModelType は学習器の種類（TAN, KDB, BoostAODE等）
	ModelType string `json:"model_type"`

	// Version はフォーマットのバージョン
	Version string `json:"version"`

	// EstimatorID はインスタンス固有のID
	EstimatorID string `json:"estimator_id,omitempty"`

	Features  []string       `json:"features"`
	ClassName string         `json:"class_name"`
	States    map[string]int `json:"states"`

	// Hyperparameters はSetHyperparametersと同じキーで表したハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	Nodes       int `json:"nodes"`
	Edges       int `json:"edges"`
	TotalStates int `json:"total_states"`

	// Models はアンサンブルの基底モデル数（単体モデルは1）
	Models int `json:"models"`

	Status string   `json:"status"`
	Notes  []string `json:"notes,omitempty"`

	// Metadata は追加のメタデータ（停止理由等）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	IsFitted bool `json:"is_fitted"`
}

// ToJSON はModelSummaryをJSON形式にシリアライズ
func (ms *ModelSummary) ToJSON() ([]byte, error) {
	return json.MarshalIndent(ms, "", "  ")
}

// FromJSON はJSON形式からModelSummaryをデシリアライズ
func (ms *ModelSummary) FromJSON(data []byte) error {
	return json.Unmarshal(data, ms)
}

// Validate はModelSummaryの妥当性を検証
func (ms *ModelSummary) Validate() error {
	if ms.ModelType == "" {
		return errors.New("model_type is required")
	}
	if ms.Version == "" {
		return errors.New("version is required")
	}
	if ms.IsFitted && ms.Nodes == 0 {
		return errors.New("fitted model must have nodes")
	}
	if ms.IsFitted && ms.ClassName == "" {
		return errors.New("fitted model must name its class variable")
	}
	return nil
}

// Clone はModelSummaryのディープコピーを作成
func (ms *ModelSummary) Clone() *ModelSummary {
	clone := *ms
	clone.Features = append([]string(nil), ms.Features...)
	clone.Notes = append([]string(nil), ms.Notes...)
	clone.States = make(map[string]int, len(ms.States))
	for k, v := range ms.States {
		clone.States[k] = v
	}
	clone.Hyperparameters = make(map[string]interface{}, len(ms.Hyperparameters))
	for k, v := range ms.Hyperparameters {
		clone.Hyperparameters[k] = v
	}
	clone.Metadata = make(map[string]interface{}, len(ms.Metadata))
	for k, v := range ms.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}
