package utils

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	FILE_EXT_SHP = ".shp"
	FILE_EXT_CPG = ".cpg"
	FILE_EXT_ZIP = ".zip"

	UTF8  = "UTF8"
	UTF_8 = "UTF-8"
)

var (
	ErrNoShpInZip = errors.New("no shp in zip")
)

func GetUniqSubDir(parentPath string) (path string, err error) {
	path = filepath.Join(parentPath, uuid.NewString())
	err = os.Mkdir(path, os.ModePerm)
	return
}

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// Unzip extracts a flat archive into dstDir and returns the extracted paths.
func Unzip(zipFile, dstDir string) (files []string, err error) {
	r, err := zip.OpenReader(zipFile)
	if err != nil {
		return
	}
	defer r.Close()
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		dst := filepath.Join(dstDir, filepath.Base(f.Name))
		var (
			in  io.ReadCloser
			out *os.File
		)
		if in, err = f.Open(); err != nil {
			return
		}
		if out, err = os.Create(dst); err != nil {
			in.Close()
			return
		}
		_, err = io.Copy(out, in)
		in.Close()
		out.Close()
		if err != nil {
			return
		}
		files = append(files, dst)
	}
	return
}

// GetShpInZip extracts a zipped shapefile delivery and reports whether its
// cpg sidecar declares UTF-8.
func GetShpInZip(zipFile, dstDir string) (path string, utf8 bool, err error) {
	shpFiles, err := Unzip(zipFile, dstDir)
	if err != nil {
		return
	}
	os.Remove(zipFile)
	for _, file := range shpFiles {
		if strings.HasSuffix(file, FILE_EXT_SHP) {
			path = file
			continue
		}
		if strings.HasSuffix(file, FILE_EXT_CPG) {
			enc, e := os.ReadFile(file)
			if e == nil && len(enc) > 0 {
				encStr := strings.ToUpper(strings.TrimSpace(string(enc)))
				utf8 = encStr == UTF_8 || encStr == UTF8
			}
		}
	}
	if path == "" {
		err = ErrNoShpInZip
	}
	return
}

// ReadCpg reads the declared encoding of a shapefile's cpg sidecar; empty
// when the sidecar is absent.
func ReadCpg(shp string) string {
	enc, err := os.ReadFile(strings.TrimSuffix(shp, FILE_EXT_SHP) + FILE_EXT_CPG)
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(string(enc)))
}
