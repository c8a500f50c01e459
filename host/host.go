// Package host adapts a *mount.Mount to github.com/hanwen/go-fuse/v2's
// node-based fs package (component H), so the engine built on components
// A-G can be exposed as an actual mounted filesystem.
//
// Grounded on go-fuse v2's documented fs.InodeEmbedder node model (the same
// family of interfaces KarpelesLab/squashfs's inode_fuse.go implements
// against) and on the teacher's own host-facing error convention: every
// upcall here unwraps a *ratsfs.DriverError back down to the bare
// syscall.Errno the kernel expects, at this boundary only.
package host

import (
	"context"
	"errors"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/mount"
)

// Node wraps one path of a mounted image as a go-fuse node. "." and ".."
// entries are synthesized in Readdir (spec §9's resolution of that open
// question); everything else is a straight delegation to *mount.Mount.
type Node struct {
	fs.Inode
	m    *mount.Mount
	path string
}

var (
	_ fs.InodeEmbedder = (*Node)(nil)
	_ fs.NodeGetattrer  = (*Node)(nil)
	_ fs.NodeLookuper   = (*Node)(nil)
	_ fs.NodeReaddirer  = (*Node)(nil)
	_ fs.NodeOpendirer  = (*Node)(nil)
	_ fs.NodeMkdirer    = (*Node)(nil)
	_ fs.NodeMknoder    = (*Node)(nil)
	_ fs.NodeCreater    = (*Node)(nil)
	_ fs.NodeOpener     = (*Node)(nil)
	_ fs.NodeReader     = (*Node)(nil)
	_ fs.NodeWriter     = (*Node)(nil)
	_ fs.NodeSetattrer  = (*Node)(nil)
	_ fs.NodeUnlinker   = (*Node)(nil)
	_ fs.NodeRmdirer    = (*Node)(nil)
	_ fs.NodeRenamer    = (*Node)(nil)
	_ fs.NodeAccesser   = (*Node)(nil)
)

func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// errnoFrom unwraps a *ratsfs.DriverError into the bare syscall.Errno the
// kernel expects; anything else (which should not happen) maps to EIO.
func errnoFrom(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	var de *ratsfs.DriverError
	if errors.As(err, &de) {
		return de.Errno
	}
	return syscall.EIO
}

func fuseMode(fileType uint8) uint32 {
	if fileType == ratsfs.TypeDirectory {
		return fuse.S_IFDIR
	}
	return fuse.S_IFREG
}

func fillAttr(attr *fuse.Attr, st *mount.Stat) {
	attr.Ino = uint64(st.Ino)
	attr.Mode = st.Mode
	attr.Size = uint64(st.Size)
	attr.Nlink = uint32(st.Nlink)
	attr.Uid = st.Uid
	attr.Gid = st.Gid
	attr.Atime = uint64(st.Atime)
	attr.Mtime = uint64(st.Mtime)
	attr.Ctime = uint64(st.Ctime)
	attr.Blksize = st.Blksize
	attr.Blocks = st.Blocks
}

func (n *Node) childNode(ctx context.Context, path string, st *mount.Stat, fileType uint8) *fs.Inode {
	return n.NewInode(ctx, &Node{m: n.m, path: path}, fs.StableAttr{
		Mode: fuseMode(fileType),
		Ino:  uint64(st.Ino),
	})
}

func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	st, err := n.m.Getattr(n.path)
	if err != nil {
		return errnoFrom(err)
	}
	fillAttr(&out.Attr, st)
	return 0
}

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p := childPath(n.path, name)
	st, err := n.m.Getattr(p)
	if err != nil {
		return nil, errnoFrom(err)
	}
	fillAttr(&out.Attr, st)

	fileType := uint8(ratsfs.TypeRegular)
	if st.Mode&ratsfs.ModeIFMT == ratsfs.ModeIFDIR {
		fileType = ratsfs.TypeDirectory
	}
	return n.childNode(ctx, p, st, fileType), 0
}

func (n *Node) Opendir(ctx context.Context) syscall.Errno {
	return errnoFrom(n.m.Opendir(n.path))
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	children, err := n.m.Readdir(n.path)
	if err != nil {
		return nil, errnoFrom(err)
	}

	entries := make([]fuse.DirEntry, 0, len(children)+2)
	entries = append(entries,
		fuse.DirEntry{Name: ".", Mode: fuse.S_IFDIR},
		fuse.DirEntry{Name: "..", Mode: fuse.S_IFDIR},
	)
	for _, c := range children {
		entries = append(entries, fuse.DirEntry{
			Name: c.Name,
			Ino:  uint64(c.InodeNum),
			Mode: fuseMode(c.FileType),
		})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p := childPath(n.path, name)
	if err := n.m.Mkdir(p, mode); err != nil {
		return nil, errnoFrom(err)
	}
	st, err := n.m.Getattr(p)
	if err != nil {
		return nil, errnoFrom(err)
	}
	fillAttr(&out.Attr, st)
	return n.childNode(ctx, p, st, ratsfs.TypeDirectory), 0
}

func (n *Node) Mknod(ctx context.Context, name string, mode, rdev uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p := childPath(n.path, name)
	if err := n.m.Mknod(p, mode); err != nil {
		return nil, errnoFrom(err)
	}
	st, err := n.m.Getattr(p)
	if err != nil {
		return nil, errnoFrom(err)
	}
	fillAttr(&out.Attr, st)
	return n.childNode(ctx, p, st, ratsfs.TypeRegular), 0
}

// Create backs O_CREAT opens: mknod the regular file, then hand back an
// already-open handle (a nil fs.FileHandle is fine, since Read/Write here
// are path-driven rather than handle-driven).
func (n *Node) Create(ctx context.Context, name string, flags, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	p := childPath(n.path, name)
	if err := n.m.Mknod(p, mode); err != nil {
		return nil, nil, 0, errnoFrom(err)
	}
	st, err := n.m.Getattr(p)
	if err != nil {
		return nil, nil, 0, errnoFrom(err)
	}
	fillAttr(&out.Attr, st)
	return n.childNode(ctx, p, st, ratsfs.TypeRegular), nil, 0, 0
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if err := n.m.Open(n.path); err != nil {
		return nil, 0, errnoFrom(err)
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *Node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := n.m.Read(n.path, off, len(dest))
	if err != nil {
		return nil, errnoFrom(err)
	}
	return fuse.ReadResultData(data), 0
}

func (n *Node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	written, err := n.m.Write(n.path, data, off)
	if err != nil {
		return 0, errnoFrom(err)
	}
	return uint32(written), 0
}

func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if in.Valid&fuse.FATTR_SIZE != 0 {
		if err := n.m.Truncate(n.path, int64(in.Size)); err != nil {
			return errnoFrom(err)
		}
	}
	if in.Valid&(fuse.FATTR_ATIME|fuse.FATTR_MTIME) != 0 {
		var atime, mtime *uint32
		if in.Valid&fuse.FATTR_ATIME != 0 {
			a := uint32(in.Atime)
			atime = &a
		}
		if in.Valid&fuse.FATTR_MTIME != 0 {
			mt := uint32(in.Mtime)
			mtime = &mt
		}
		if err := n.m.Utimens(n.path, atime, mtime); err != nil {
			return errnoFrom(err)
		}
	}

	st, err := n.m.Getattr(n.path)
	if err != nil {
		return errnoFrom(err)
	}
	fillAttr(&out.Attr, st)
	return 0
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return errnoFrom(n.m.Unlink(childPath(n.path, name)))
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return errnoFrom(n.m.Rmdir(childPath(n.path, name)))
}

func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	dest, ok := newParent.(*Node)
	if !ok {
		return syscall.EINVAL
	}
	return errnoFrom(n.m.Rename(childPath(n.path, name), childPath(dest.path, newName)))
}

func (n *Node) Access(ctx context.Context, mask uint32) syscall.Errno {
	return errnoFrom(n.m.Access(n.path))
}

// Serve mounts m at mountpoint and returns the running server; callers
// typically follow up with server.Wait().
func Serve(m *mount.Mount, mountpoint string, debug bool) (*fuse.Server, error) {
	root := &Node{m: m, path: "/"}
	return fs.Mount(mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:  debug,
			FsName: "ratsfs",
			Name:   "ratsfs",
		},
	})
}
