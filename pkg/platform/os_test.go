// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestDefaultInterpreter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos string
		want string
	}{
		{Windows, "powershell"},
		{Linux, "pwsh"},
		{Darwin, "pwsh"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			t.Parallel()
			if got := DefaultInterpreter(tt.goos); got != tt.want {
				t.Errorf("DefaultInterpreter(%q) = %q, want %q", tt.goos, got, tt.want)
			}
		})
	}
}

func TestIsPowerShell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"bare powershell", "powershell", true},
		{"bare pwsh", "pwsh", true},
		{"windows path with exe", `C:\Windows\System32\WindowsPowerShell\v1.0\powershell.exe`, true},
		{"program files pwsh", `C:\Program Files\PowerShell\7\pwsh.exe`, true},
		{"unix path", "/usr/local/bin/pwsh", true},
		{"upper case", "PWSH.EXE", true},
		{"bash", "/bin/bash", false},
		{"cmd", "cmd.exe", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsPowerShell(tt.input); got != tt.expected {
				t.Errorf("IsPowerShell(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
