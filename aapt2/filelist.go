// Copyright 2026 Google Inc. All rights reserved.
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

package aapt2

import (
	"fmt"
	"io"
	"strings"
	"unicode"
)

// aapt2 file lists ("@file" arguments) hold paths separated by whitespace, with no quoting.

func listUnsafeChar(r rune) bool {
	return unicode.IsSpace(r)
}

func canWriteFileList(files []string) bool {
	for _, f := range files {
		if f == "" || strings.IndexFunc(f, listUnsafeChar) != -1 {
			return false
		}
	}
	return true
}

// WriteFileList writes files in the format aapt2 reads for "@file" arguments, one per line.
func WriteFileList(w io.Writer, files []string) error {
	for _, f := range files {
		if f == "" || strings.IndexFunc(f, listUnsafeChar) != -1 {
			return fmt.Errorf("path %q cannot be written to an aapt2 file list", f)
		}
		if _, err := io.WriteString(w, f+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// ReadFileList reads a file list the way aapt2 does.
func ReadFileList(r io.Reader) ([]string, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(buf)), nil
}

// ExpandFileLists replaces every "@file" argument with the paths listed in the file.
func ExpandFileLists(args []string, open func(string) (io.ReadCloser, error)) ([]string, error) {
	var ret []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "@") {
			ret = append(ret, arg)
			continue
		}
		f, err := open(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return nil, err
		}
		files, err := ReadFileList(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		ret = append(ret, files...)
	}
	return ret, nil
}
