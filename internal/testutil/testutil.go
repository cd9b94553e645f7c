// Package testutil provides shared test helpers for config files and model fixtures.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ClassifierModelJSON is a small CatBoost JSON export over the six answer
// features (wpm, mlr, pause, grammar, pr, coherence) with five classes.
//
// The first tree splits on wpm > 100 and favours class 1 below the border
// and class 3 above it. The second tree splits on coherence > 1.5 (bit 0)
// and grammar > 3.5 (bit 1) and adds 2 to class 4 when both hold.
const ClassifierModelJSON = `{
  "model_info": {"class_params": {"class_to_label": [0, 1, 2, 3, 4]}},
  "features_info": {"float_features": [
    {"feature_index": 0, "flat_feature_index": 0, "borders": [100]},
    {"feature_index": 1, "flat_feature_index": 1, "borders": []},
    {"feature_index": 2, "flat_feature_index": 2, "borders": []},
    {"feature_index": 3, "flat_feature_index": 3, "borders": [3.5]},
    {"feature_index": 4, "flat_feature_index": 4, "borders": []},
    {"feature_index": 5, "flat_feature_index": 5, "borders": [1.5]}
  ]},
  "oblivious_trees": [
    {
      "leaf_values": [0, 1, 0, 0, 0,  0, 0, 0, 1, 0],
      "splits": [{"float_feature_index": 0, "border": 100, "split_index": 0, "split_type": "FloatFeature"}]
    },
    {
      "leaf_values": [0, 0, 0, 0, 0,  0, 0, 0.5, 0, 0,  0, 0, 0, 0.5, 0,  0, 0, 0, 0, 2],
      "splits": [
        {"float_feature_index": 5, "border": 1.5, "split_index": 2, "split_type": "FloatFeature"},
        {"float_feature_index": 3, "border": 3.5, "split_index": 1, "split_type": "FloatFeature"}
      ]
    }
  ],
  "scale_and_bias": [1, [0, 0, 0, 0, 0]]
}`

// WriteClassifierModel writes ClassifierModelJSON under dir and returns its path.
func WriteClassifierModel(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "catboost_model.json")
	require.NoError(t, os.WriteFile(path, []byte(ClassifierModelJSON), 0644))
	return path
}

// SetupTestConfig creates a minimal config file and the directories it references.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	for _, d := range []string{"uploads", "logs", "reports"} {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, d), 0755))
	}
	modelPath := WriteClassifierModel(t, tmpDir)

	configContent := fmt.Sprintf(`server:
  port: 18000
  timezone: Asia/Seoul
  jwt_secret: test-secret
database:
  host: 127.0.0.1
  port: 3306
  database: mopic_test
  username: test
logging:
  level: debug
  directory: %s
audio:
  upload_directory: %s
inference:
  base_url: http://127.0.0.1:8001
classifier:
  model_path: %s
outputs:
  report_directory: %s
`,
		filepath.Join(tmpDir, "logs"),
		filepath.Join(tmpDir, "uploads"),
		modelPath,
		filepath.Join(tmpDir, "reports"),
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}
