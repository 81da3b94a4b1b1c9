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

package errors

import "net/http"

// HTTPStatus maps an error to the status code an inbound handler should
// answer with. Unknown errors map to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var (
		badRequest *BadRequestError
		validation *ValidationError
		notFound   *NotFoundError
		conflict   *ConflictError
	)
	switch {
	case As(err, &badRequest), As(err, &validation):
		return http.StatusBadRequest
	case As(err, &notFound):
		return http.StatusNotFound
	case As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
