package tree

import "strings"

// Lookup resolves path against root, per spec §4.E:
//
//  1. "/" resolves to root directly.
//  2. Empty segments are skipped, so "//a" behaves like "/a" and a trailing
//     slash is tolerated.
//  3. Starting at root, each component is loaded (if not already) and
//     matched by full string equality against the current directory's
//     children.
//
// It returns the last entry reached, whether the full path resolved, and
// whether that entry is the root. On a miss, the returned entry is the
// parent chain materialized up to the failed step (i.e. the last ancestor
// that did resolve). "." and ".." are not supported; the host is expected
// to canonicalize.
func (c *Cache) Lookup(root *Dentry, path string) (entry *Dentry, found bool, isRoot bool, err error) {
	if path == "/" {
		if err := c.LoadInode(root); err != nil {
			return root, false, true, err
		}
		return root, true, true, nil
	}

	segments := splitPath(path)
	cur := root

	for _, seg := range segments {
		if err := c.LoadInode(cur); err != nil {
			return cur, false, false, err
		}
		if !cur.Inode.IsDir() {
			return cur, false, false, nil
		}

		child := FindChild(cur.Inode, seg)
		if child == nil {
			return cur, false, false, nil
		}
		cur = child
	}

	if err := c.LoadInode(cur); err != nil {
		return cur, false, false, err
	}
	return cur, true, false, nil
}

func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// SplitParentBase applies the parent-path extraction rule shared by every
// creating operation (spec §4.G): the parent is everything before the last
// "/" (or "/" itself if there is none before the last component), and the
// base is everything after it. An empty base is the caller's cue to surface
// EINVAL.
func SplitParentBase(path string) (parent, base string) {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/", path[i+1:]
	}
	return path[:i], path[i+1:]
}
