package config

import "github.com/larkhttp/larkhttpd/webdir"

// defaultTemplates is the built-in listing skin used when a directory's
// JSON entry doesn't override any of the six fragments (spec §6.2's
// token set: {page-url} {parent-url} {url} {name} {size} {time}
// {files-count} {directories-count} {errors-count} {tab}).
func defaultTemplates() webdir.Templates {
	return webdir.Templates{
		Header: "<html><head><title>Index of {page-url}</title></head>" +
			"<body><h1>Index of {page-url}</h1><table>\n",
		ParentLink:    "<tr><td><a href=\"{parent-url}\">../</a></td></tr>\n",
		VirtualDirRow: "<tr><td><a href=\"{url}\">{name}/</a></td><td>{tab}</td><td>{tab}</td></tr>\n",
		DirectoryRow:  "<tr><td><a href=\"{url}\">{name}/</a></td><td>{tab}</td><td>{time}</td></tr>\n",
		FileRow:       "<tr><td><a href=\"{url}\">{name}</a></td><td>{size}</td><td>{time}</td></tr>\n",
		Footer: "</table><hr><p>{files-count} files, {directories-count} directories, " +
			"{errors-count} errors</p></body></html>",
	}
}
