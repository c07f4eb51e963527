package testutil

// Test user information used across all test helpers.
const (
	// TestAuthor is the default author name for test commits.
	TestAuthor = "Test User"

	// TestEmail is the default email for test commits.
	TestEmail = "test@example.com"
)

// Test file content.
const (
	// TestFileContent is sample content for README files.
	TestFileContent = "# Test Repository\n\nThis is a test repository.\n"

	// TestGoFileContent is sample Go source code.
	TestGoFileContent = `package main

import "fmt"

func main() {
	fmt.Println("Hello, World!")
}
`
)

// Test commit messages.
const (
	// TestInitialCommit is a message for initial commits.
	TestInitialCommit = "Initial commit"

	// TestFeatureCommit is a message for feature commits.
	TestFeatureCommit = "Add new feature"
)

// Test branch names.
const (
	// TestBranchMain is the main branch name.
	TestBranchMain = "main"

	// TestBranchDevelop is the develop branch name.
	TestBranchDevelop = "develop"
)

// Test file paths.
const (
	// TestFilePath is a standard test file path.
	TestFilePath = "README.md"

	// TestFilePath2 is a second test file path.
	TestFilePath2 = "docs/guide.md"

	// TestGoFilePath is a Go source file path.
	TestGoFilePath = "main.go"
)

// DefaultFiles is the tree of a freshly created source repository.
func DefaultFiles() map[string]string {
	return map[string]string{
		TestFilePath:   TestFileContent,
		TestFilePath2:  "# Guide\n",
		TestGoFilePath: TestGoFileContent,
	}
}
