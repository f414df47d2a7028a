/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package validate

import "fmt"

// ValidationFailure is returned under SeverityFail when any rule is breached.
// It carries every failing entry, not only the first.
type ValidationFailure struct {
	Msg    string
	Report []Entry
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("validation failed: %s (%d entries)", e.Msg, len(e.Report))
}
