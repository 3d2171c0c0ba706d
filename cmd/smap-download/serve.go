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
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

var launchServerFunc = launchServer

func launchServer(addr string, router *mux.Router) {
	server := http.Server{
		Addr:    addr,
		Handler: router,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		util.LogSimpleErr(&util.BasicLogContext{}, "Metrics server stopped", err)
	}
}
