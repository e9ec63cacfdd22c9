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

package symbols

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"android/resplit/testutil"
)

const rTxt = `int attr colorAccent 0x7f010000
int string app_name 0x7f0b0001
int[] styleable MyView { 0x7f010000, 0x7f010001 }
int styleable MyView_colorAccent 0
int styleable MyView_android_text 1
int[] styleable MyView_Inner { 0x7f010000 }
int styleable MyView_Inner_colorAccent 0
`

const manifest = `<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android"
    package="com.example.lib" android:versionCode="1">
  <application/>
</manifest>
`

func TestWriteSymbolListWithPackageName(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0666); err != nil {
			t.Fatal(err)
		}
		return path
	}
	out := filepath.Join(dir, "package-aware-r.txt")
	err := WriteSymbolListWithPackageName(write("R.txt", rTxt), write("AndroidManifest.xml", manifest), out)
	testutil.FailIfErrored(t, "write", err)

	data, err := os.ReadFile(out)
	testutil.FailIfErrored(t, "read", err)
	expected := strings.Join([]string{
		"com.example.lib",
		"attr colorAccent",
		"string app_name",
		"styleable MyView colorAccent android_text",
		"styleable MyView_Inner colorAccent",
		"",
	}, "\n")
	testutil.AssertStringEquals(t, "symbol list", expected, string(data))
}

func TestManifestPackage(t *testing.T) {
	pkg, err := ManifestPackage(strings.NewReader(manifest))
	testutil.FailIfErrored(t, "package", err)
	testutil.AssertStringEquals(t, "package", "com.example.lib", pkg)

	_, err = ManifestPackage(strings.NewReader(`<manifest/>`))
	testutil.AssertErrorMessageContains(t, "no package", "no package attribute", err)

	_, err = ManifestPackage(strings.NewReader(`<resources/>`))
	testutil.AssertErrorMessageContains(t, "wrong root", "expected manifest", err)
}

func TestReadSymbolTableErrors(t *testing.T) {
	_, err := ReadSymbolTable(strings.NewReader("int string\n"))
	testutil.AssertErrorMessageContains(t, "short line", "line 1: malformed symbol", err)

	_, err = ReadSymbolTable(strings.NewReader("int styleable Orphan_attr 0\n"))
	testutil.AssertErrorMessageContains(t, "orphan", "has no styleable", err)
}

func TestReadSymbolList(t *testing.T) {
	pkg, symbols, err := ReadSymbolList(strings.NewReader("com.example.lib\nstring app_name\n\nstyleable MyView colorAccent\n"))
	testutil.FailIfErrored(t, "read", err)
	testutil.AssertStringEquals(t, "package", "com.example.lib", pkg)
	testutil.AssertIntEquals(t, "symbols", 2, len(symbols))
	testutil.AssertStringEquals(t, "name", "MyView", symbols[1].Name)
	testutil.AssertArrayString(t, "children", []string{"colorAccent"}, symbols[1].Children)

	_, _, err = ReadSymbolList(strings.NewReader(""))
	testutil.AssertErrorMessageContains(t, "empty", "empty symbol list", err)

	_, _, err = ReadSymbolList(strings.NewReader("com.example.lib\nstring\n"))
	testutil.AssertErrorMessageContains(t, "short line", "line 2: malformed symbol", err)
}

func TestGenerateLibraryRClasses(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0666); err != nil {
			t.Fatal(err)
		}
		return path
	}
	libraries := []string{
		write("lib-a.txt", "com.example.lib\nstyleable MyView colorAccent\n"),
		write("lib-b.txt", "com.example.lib\nattr colorAccent\nstring missing\n"),
		write("app.txt", "com.example.app\nstring app_name\n"),
	}
	out := filepath.Join(dir, "r")
	err := GenerateLibraryRClasses(write("R.txt", rTxt), libraries, "com.example.app", out)
	testutil.FailIfErrored(t, "generate", err)

	data, err := os.ReadFile(filepath.Join(out, "com", "example", "lib", "R.java"))
	testutil.FailIfErrored(t, "read", err)
	expected := strings.Join([]string{
		"/* AUTO-GENERATED FILE.  DO NOT MODIFY. */",
		"",
		"package com.example.lib;",
		"",
		"public final class R {",
		"    public static final class attr {",
		"        public static final int colorAccent = 0x7f010000;",
		"    }",
		"    public static final class styleable {",
		"        public static final int[] MyView = { 0x7f010000, 0x7f010001 };",
		"        public static final int MyView_colorAccent = 0;",
		"    }",
		"}",
		"",
	}, "\n")
	testutil.AssertStringEquals(t, "R.java", expected, string(data))

	if _, err := os.Stat(filepath.Join(out, "com", "example", "app")); !os.IsNotExist(err) {
		t.Errorf("expected no R class for the main package, got %v", err)
	}
}
