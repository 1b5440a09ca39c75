package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

type sampleConfig struct {
	Name    string   `json:"name" jsonschema:"description=The name of the config"`
	Limit   float64  `json:"limit" jsonschema:"description=A numeric limit"`
	Enabled bool     `json:"enabled"`
	Tags    []string `json:"tags,omitempty"`
}

type nestedConfig struct {
	ID     string       `json:"id"`
	Config sampleConfig `json:"config"`
}

func (suite *UtilsTestSuite) TestToJSONSchema() {
	schema, err := ToJSONSchema(sampleConfig{})
	suite.Require().NoError(err)

	var parsed map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &parsed))

	properties, ok := parsed["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "name")
	suite.Contains(properties, "limit")
	suite.Contains(properties, "enabled")

	limit := properties["limit"].(map[string]any)
	suite.Equal("A numeric limit", limit["description"])
}

func (suite *UtilsTestSuite) TestToJSONSchemaInlinesNestedStructs() {
	schema, err := ToJSONSchema(&nestedConfig{})
	suite.Require().NoError(err)
	suite.NotContains(schema, "$defs")

	var parsed map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &parsed))

	properties := parsed["properties"].(map[string]any)
	config := properties["config"].(map[string]any)
	suite.Contains(config["properties"], "limit")
}
