package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()

	files := map[string]string{
		"postcodes.csv": "postcode,in_use,latitude,longitude,introduced,terminated,altitude,ward,parish\n" +
			"NP25 3AB,Yes,51.78,-2.70,,,50,Monmouth,Monmouth\n",
		"prices.csv": "unique_id,price_paid,deed_date,postcode,property_type,new_build,estate_type,saon,paon,street,locality,town,district,county,transaction_category\n" +
			"{A1},100000,2001-03-15,NP25 3AB,D,N,F,,ROSE COTTAGE,HIGH STREET,,MONMOUTH,MONMOUTHSHIRE,MONMOUTHSHIRE,A\n" +
			"{A2},130000,2004-03-15,NP25 3AB,D,N,F,,ROSE COTTAGE,HIGH STREET,,MONMOUTH,MONMOUTHSHIRE,MONMOUTHSHIRE,A\n",
		"stores.csv": "id,retailer,fascia,postcode,lat_wgs,long_wgs,county\n" +
			"1,Tesco,Tesco Extra,NP25 5XX,51.73,-2.69,Monmouthshire\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	cfg := strings.NewReplacer("DIR", dir).Replace(`
log_level: error
sources:
  locations: {path: DIR/postcodes.csv}
  prices: {path: DIR/prices.csv}
  facilities: {path: DIR/stores.csv}
output:
  table: DIR/out/properties.csv
  metadata: DIR/out/variable_info.csv
  shape: DIR/out/shape.csv
`)
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return dir, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunAndDescribeCommands(t *testing.T) {
	color.NoColor = true
	dir, cfgPath := writeConfig(t)

	out, err := execute(t, "run", "--config", cfgPath, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Properties         : 1")
	assert.FileExists(t, filepath.Join(dir, "out", "properties.csv"))

	out, err = execute(t, "describe", "--config", cfgPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "variable_name,data_type,uniques,nulls,null_proportion,sample_values,source_file\n"))
	assert.Contains(t, out, "property_id,object,1,0,0.0000,")
	assert.Contains(t, out, "latitude,float64,1,0,0.0000,51.78,postcodes")
}

func TestRunCommandFailsOnBadRadius(t *testing.T) {
	_, cfgPath := writeConfig(t)
	_, err := execute(t, "run", "--config", cfgPath, "--radius", "-1")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
}
