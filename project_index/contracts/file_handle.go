package contracts

// IFileHandle gives byte-level access to one indexed file. It is obtained at
// scan time and stays valid until the project is closed.
type IFileHandle interface {
	Size() (int64, error)
	Read() ([]byte, error)
}
