// Package filesystem walks workspace trees with the ignore rules a
// TypeScript monorepo needs.
//
// # Overview
//
// Walk skips dependency and build output directories (node_modules, dist,
// .angular, ...), hidden entries, glob-ignored files and, when asked, the
// entries listed in the root .gitignore:
//
//	err := filesystem.Walk(root, filesystem.WalkOptions{Gitignore: true},
//	    func(path string, info os.FileInfo) error {
//	        fmt.Println(path)
//	        return nil
//	    })
//
// Return filepath.SkipDir from the visitor to prune a directory.
package filesystem
