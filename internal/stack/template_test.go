package stack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlTemplate = `
AWSTemplateFormatVersion: "2010-09-09"
Parameters:
  Environment:
    Type: String
    AllowedValues: [dev, prod]
    Description: Deployment environment
  DBPassword:
    Type: String
    NoEcho: true
  InstanceCount:
    Type: Number
    Default: 2
Resources:
  Vpc:
    Type: AWS::EC2::VPC
    Properties:
      CidrBlock: !Ref VpcCidr
      Tags:
        - Key: Name
          Value: !Sub "${AWS::StackName}-vpc"
`

const jsonTemplate = `{
  "Parameters": {
    "KeyName": {"Type": "AWS::EC2::KeyPair::KeyName", "NoEcho": "true"},
    "Zone": {"Type": "String", "Default": "us-east-1a"}
  },
  "Resources": {}
}`

func TestTemplateParameters_YAML(t *testing.T) {
	params, err := TemplateParameters([]byte(yamlTemplate))
	require.NoError(t, err)
	require.Len(t, params, 3)

	assert.Equal(t, "Environment", params[0].Name)
	assert.Equal(t, "String", params[0].Type)
	assert.Equal(t, []string{"dev", "prod"}, params[0].AllowedValues)
	assert.Equal(t, "Deployment environment", params[0].Description)
	assert.False(t, params[0].HasDefault)

	assert.True(t, params[1].NoEcho)

	assert.Equal(t, "InstanceCount", params[2].Name)
	assert.True(t, params[2].HasDefault)
	assert.Equal(t, "2", params[2].Default)
}

func TestTemplateParameters_JSON(t *testing.T) {
	params, err := TemplateParameters([]byte(jsonTemplate))
	require.NoError(t, err)
	require.Len(t, params, 2)

	assert.Equal(t, "KeyName", params[0].Name)
	assert.True(t, params[0].NoEcho)
	assert.Equal(t, "us-east-1a", params[1].Default)
}

func TestTemplateParameters_NoParameters(t *testing.T) {
	params, err := TemplateParameters([]byte("Resources: {}\n"))
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestTemplateParameters_Invalid(t *testing.T) {
	_, err := TemplateParameters([]byte("- just\n- a list\n"))
	assert.Error(t, err)

	_, err = TemplateParameters(nil)
	assert.Error(t, err)
}

func TestLoadParameters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yml")
	require.NoError(t, os.WriteFile(path, []byte("Environment: prod\nInstanceCount: 3\nEnableLogs: true\n"), 0o600))

	params, err := LoadParameters(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"Environment":   "prod",
		"InstanceCount": "3",
		"EnableLogs":    "true",
	}, params)
}

func TestLoadParameters_RejectsNested(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yml")
	require.NoError(t, os.WriteFile(path, []byte("Tags:\n  a: b\n"), 0o600))

	_, err := LoadParameters(path)
	assert.ErrorContains(t, err, "Tags is not a scalar")
}

func TestLoadParameters_Missing(t *testing.T) {
	_, err := LoadParameters(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestMissingParameters(t *testing.T) {
	params, err := TemplateParameters([]byte(yamlTemplate))
	require.NoError(t, err)

	missing := MissingParameters(params, map[string]string{"Environment": "dev"})

	assert.Equal(t, []string{"DBPassword"}, missing)
}
