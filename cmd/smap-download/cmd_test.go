// Copyright 2018, RadiantBlue Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alecsandermergen11/SMAP-auto-download/ledger"
	"github.com/alecsandermergen11/SMAP-auto-download/ui"
	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

const soilMoisture = "SMAP_L4_SM_09km (SPL4SMGP.008)"

type fakeAPI struct {
	submitted atomic.Int32
}

func (api *fakeAPI) router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "earthdata" || pass != "secret" {
			http.Error(w, `{"message": "Invalid credentials"}`, http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"token": "token"}`))
	}).Methods(http.MethodPost)
	router.HandleFunc("/api/task", func(w http.ResponseWriter, r *http.Request) {
		n := api.submitted.Add(1)
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, `{"task_id": "task-%d", "status": "pending"}`, n)
	}).Methods(http.MethodPost)
	router.HandleFunc("/api/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"task_id": %q, "status": "done"}`, mux.Vars(r)["id"])
	})
	router.HandleFunc("/api/bundle/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		fmt.Fprintf(w, `{"task_id": %q, "files": [{"file_id": "f1", "file_name": "SPL4SMGP.008/SM_%s.tif", "file_type": "tif", "file_size": 6}]}`, id, id)
	})
	router.HandleFunc("/api/bundle/{id}/{file}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raster"))
	})
	return router
}

type environment struct {
	api    *fakeAPI
	aoiDir string
	output string
}

func setup(t *testing.T, prompter ui.Prompter) *environment {
	env := &environment{api: &fakeAPI{}}
	server := httptest.NewServer(env.api.router())
	t.Cleanup(server.Close)

	root := t.TempDir()
	env.aoiDir = filepath.Join(root, "aoi")
	env.output = filepath.Join(root, "data")
	require.Nil(t, os.MkdirAll(env.aoiDir, 0o755))
	writeAOI(t, env.aoiDir, "Cerrado")

	t.Setenv(util.SMAP_API_URL, server.URL+"/api/")
	t.Setenv(util.SMAP_AOI_DIR, env.aoiDir)
	t.Setenv(util.SMAP_OUTPUT_DIR, env.output)
	t.Setenv(util.SMAP_POLL_INTERVAL, "1ms")
	t.Setenv(util.SMAP_RATE_LIMIT, "1000")
	t.Setenv(util.SMAP_METRICS_ADDR, "")
	t.Setenv(util.SMAP_MIRROR_BUCKET, "")
	t.Setenv(util.DATABASE_URL, "")
	t.Setenv(usernameEnv, "earthdata")
	t.Setenv(passwordEnv, "secret")

	oldPrompter, oldProgress := newPrompterFunc, newProgressFunc
	newPrompterFunc = func() ui.Prompter { return prompter }
	newProgressFunc = func() ui.Progress { return ui.Silent{} }
	t.Cleanup(func() { newPrompterFunc, newProgressFunc = oldPrompter, oldProgress })
	return env
}

func writeAOI(t *testing.T, dir, name string) {
	w, err := shp.Create(filepath.Join(dir, name+".shp"), shp.POLYGON)
	require.Nil(t, err)
	ring := []shp.Point{{X: -48, Y: -16}, {X: -48, Y: -15}, {X: -47, Y: -15}, {X: -47, Y: -16}, {X: -48, Y: -16}}
	w.Write((*shp.Polygon)(shp.NewPolyLine([][]shp.Point{ring})))
	w.Close()
}

func runApp(args ...string) (string, error) {
	app := createCliApp()
	out := &bytes.Buffer{}
	app.Writer = out
	err := app.Run(append([]string{"smap-download"}, args...))
	return out.String(), err
}

func TestRun_WithFlags(t *testing.T) {
	env := setup(t, &ui.Scripted{})

	out, err := runApp("run", "--aoi", "Cerrado", "--start", "2015-04-01", "--end", "2016-02-10", "--product", soilMoisture, "--yes")
	require.Nil(t, err)
	assert.Equal(t, int32(2), env.api.submitted.Load())
	assert.Contains(t, out, "AOI Cerrado: 2 submitted, 2 done, 0 failed")

	data, err := os.ReadFile(filepath.Join(env.output, "Cerrado", "SMAP_AppEEARS", "2015-04-01_to_2015-12-31", "SPL4SMGP.008", "SM_task-1.tif"))
	require.Nil(t, err)
	assert.Equal(t, "raster", string(data))
	_, err = os.Stat(filepath.Join(env.output, "Cerrado", "SMAP_AppEEARS", "2016-01-01_to_2016-02-10", "SPL4SMGP.008", "SM_task-2.tif"))
	assert.Nil(t, err)
}

func TestRun_Interactive(t *testing.T) {
	prompter := &ui.Scripted{
		Selections: [][]string{{"Cerrado"}, {soilMoisture}},
		Texts:      []string{"", "2015-12-31"},
		Confirms:   []bool{true},
	}
	env := setup(t, prompter)

	out, err := runApp("run")
	require.Nil(t, err)
	assert.Equal(t, int32(1), env.api.submitted.Load())
	assert.Contains(t, out, "Period:   2015-04-01 to 2015-12-31")
	assert.Equal(t, []string{"Areas of interest", "Start date (YYYY-MM-DD)", "End date (YYYY-MM-DD)", "SMAP products", "Start the run"}, prompter.Asked)
}

func TestRun_PromptsForCredentials(t *testing.T) {
	prompter := &ui.Scripted{Texts: []string{"earthdata"}, Secrets: []string{"secret"}}
	env := setup(t, prompter)
	t.Setenv(usernameEnv, "")
	t.Setenv(passwordEnv, "")

	_, err := runApp("run", "--aoi", "Cerrado", "--start", "2016-01-01", "--end", "2016-01-31", "--product", soilMoisture, "--yes")
	require.Nil(t, err)
	assert.Equal(t, []string{"Earthdata username", "Earthdata password"}, prompter.Asked)
	assert.Equal(t, int32(1), env.api.submitted.Load())
}

func TestRun_Declined(t *testing.T) {
	env := setup(t, &ui.Scripted{Confirms: []bool{false}})

	_, err := runApp("run", "--aoi", "Cerrado", "--start", "2015-04-01", "--end", "2015-05-01", "--product", soilMoisture)
	assert.Nil(t, err)
	assert.Zero(t, env.api.submitted.Load())
}

func TestRun_NothingSelected(t *testing.T) {
	env := setup(t, &ui.Scripted{Selections: [][]string{{}}})

	_, err := runApp("run")
	assert.Nil(t, err)
	assert.Zero(t, env.api.submitted.Load())
}

func TestRun_LoginFailure(t *testing.T) {
	env := setup(t, &ui.Scripted{})
	t.Setenv(passwordEnv, "wrong")

	_, err := runApp("run", "--yes")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "login failed")
	assert.Zero(t, env.api.submitted.Load())
}

func TestRun_NoShapefile(t *testing.T) {
	env := setup(t, &ui.Scripted{})
	require.Nil(t, os.Remove(filepath.Join(env.aoiDir, "Cerrado.shp")))

	_, err := runApp("run", "--yes")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "no shapefile found")
}

func writeBrokenAOI(t *testing.T, dir, name string) {
	writeAOI(t, dir, name)
	polyconic := `PROJCS["SIRGAS_2000_Brazil_Polyconic",GEOGCS["GCS_SIRGAS_2000",DATUM["D_SIRGAS_2000",SPHEROID["GRS_1980",6378137.0,298.257222101]]],PROJECTION["Polyconic"],PARAMETER["Central_Meridian",-54.0],UNIT["Meter",1.0]]`
	require.Nil(t, os.WriteFile(filepath.Join(dir, name+".prj"), []byte(polyconic), 0o644))
}

func TestRun_SkipsBrokenAOI(t *testing.T) {
	env := setup(t, &ui.Scripted{})
	writeBrokenAOI(t, env.aoiDir, "Pantanal")
	logs := &bytes.Buffer{}
	util.SetLogOutput(logs)
	t.Cleanup(func() { util.SetLogOutput(nil) })

	out, err := runApp("run", "--aoi", "Pantanal", "--aoi", "Cerrado", "--start", "2016-01-01", "--end", "2016-01-31", "--product", soilMoisture, "--yes")
	require.Nil(t, err)
	assert.Equal(t, int32(1), env.api.submitted.Load())
	assert.Contains(t, out, "AOI Cerrado: 1 submitted, 1 done, 0 failed")
	assert.NotContains(t, out, "AOI Pantanal:")
	assert.Contains(t, logs.String(), "Skipping AOI Pantanal")
	assert.Contains(t, logs.String(), "unsupported projection")

	_, err = os.Stat(filepath.Join(env.output, "Cerrado", "SMAP_AppEEARS", "2016-01-01_to_2016-01-31", "SPL4SMGP.008", "SM_task-1.tif"))
	assert.Nil(t, err)
	_, err = os.Stat(filepath.Join(env.output, "Pantanal"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_AllAOIsBroken(t *testing.T) {
	env := setup(t, &ui.Scripted{})
	writeBrokenAOI(t, env.aoiDir, "Pantanal")

	_, err := runApp("run", "--aoi", "Pantanal", "--start", "2016-01-01", "--end", "2016-01-31", "--product", soilMoisture, "--yes")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "none of the selected AOIs could be loaded")
	assert.Zero(t, env.api.submitted.Load())
}

func TestRun_UnknownChoices(t *testing.T) {
	setup(t, &ui.Scripted{})

	_, err := runApp("run", "--aoi", "Amazonia", "--yes")
	assert.NotNil(t, err)
	_, err = runApp("run", "--aoi", "Cerrado", "--start", "2015-04-01", "--end", "2015-05-01", "--product", "MODIS", "--yes")
	assert.NotNil(t, err)
	_, err = runApp("run", "--aoi", "Cerrado", "--start", "2016-01-01", "--end", "2015-01-01", "--product", soilMoisture, "--yes")
	assert.NotNil(t, err)
}

func TestRun_ServesMetrics(t *testing.T) {
	setup(t, &ui.Scripted{})
	t.Setenv(util.SMAP_METRICS_ADDR, "localhost:0")
	routers := make(chan *mux.Router, 1)
	launchServerFunc = func(addr string, router *mux.Router) { // Mock
		routers <- router
	}
	t.Cleanup(func() { launchServerFunc = launchServer })

	_, err := runApp("run", "--aoi", "Cerrado", "--start", "2016-01-01", "--end", "2016-01-31", "--product", soilMoisture, "--yes")
	require.Nil(t, err)

	select {
	case router := <-routers:
		response := httptest.NewRecorder()
		router.ServeHTTP(response, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body, _ := io.ReadAll(response.Body)
		assert.Contains(t, string(body), "smap_tasks_submitted_total 1")
		assert.Contains(t, string(body), `smap_files_total{result="downloaded"} 1`)
	case <-time.After(time.Second):
		assert.Fail(t, "metrics server was not launched")
	}
}

func TestProducts(t *testing.T) {
	out, err := runApp("products")
	require.Nil(t, err)
	assert.Contains(t, out, soilMoisture+"\n  SPL4SMGP.008 / Geophysical_Data_sm_surface\n")
}

func TestChunks(t *testing.T) {
	out, err := runApp("chunks", "--start", "2015-04-01", "--end", "2016-02-10")
	require.Nil(t, err)
	assert.Equal(t, "2015-04-01_to_2015-12-31\n2016-01-01_to_2016-02-10\n", out)

	_, err = runApp("chunks", "--start", "2015-04-01")
	assert.NotNil(t, err)
	_, err = runApp("chunks", "--start", "01-04-2015", "--end", "2016-02-10")
	assert.NotNil(t, err)
}

func TestHistory_RequiresDatabase(t *testing.T) {
	t.Setenv(util.DATABASE_URL, "")
	_, err := runApp("history")
	assert.ErrorIs(t, err, errNoDatabase)
	_, err = runApp("migrate")
	assert.ErrorIs(t, err, errNoDatabase)
}

func TestOpenLedger_MemoryWithoutDatabase(t *testing.T) {
	l, closeLedger, err := openLedger(&util.BasicLogContext{}, util.DefaultConfig())
	require.Nil(t, err)
	defer closeLedger()
	assert.IsType(t, &ledger.Memory{}, l)
}

func TestVersion(t *testing.T) {
	out, err := runApp("version")
	require.Nil(t, err)
	assert.Equal(t, "smap-download dev\n", out)
}
