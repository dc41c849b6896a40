package vfat

// Entry is either a File or a Dir.
type Entry struct {
	file *File
	dir  *Dir
}

func (e Entry) Name() string {
	switch {
	case e.file != nil:
		return e.file.Name()
	case e.dir != nil:
		return e.dir.Name()
	}
	return ""
}

func (e Entry) Metadata() Metadata {
	switch {
	case e.file != nil:
		return e.file.Metadata()
	case e.dir != nil:
		return e.dir.Metadata()
	}
	return Metadata{}
}

func (e Entry) IsFile() bool {
	return e.file != nil
}

func (e Entry) IsDir() bool {
	return e.dir != nil
}

// AsFile returns the file if the entry is one.
func (e Entry) AsFile() (*File, bool) {
	return e.file, e.file != nil
}

// AsDir returns the directory if the entry is one.
func (e Entry) AsDir() (*Dir, bool) {
	return e.dir, e.dir != nil
}
