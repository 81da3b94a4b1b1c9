// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rest issues single outbound calls against an Okapi gateway and
// classifies what comes back.
//
// An Executor builds one request from okapi.ConnectionParams, a relative
// path, a method and an optional Body. It never blocks the caller: the
// exchange runs on its own goroutine behind a future.Future. Each call
// gets its own HTTP client, released on every exit path.
//
// A Classifier maps the outcome to success, partial success or one of
// four failure kinds, each carried by a distinct error type from the
// errors package:
//
//	f := exec.Do(ctx, params, "/instance-storage/instances/"+id, http.MethodGet, nil)
//	resp, err := f.Await(ctx)
//	switch r := rest.Classify(resp, err); {
//	case r.OK():
//	    // use r.Response
//	case r.Kind == rest.KindNotFound:
//	    // absent resource
//	default:
//	    return r.Err
//	}
package rest
