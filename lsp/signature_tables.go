package lsp

import "regexp"

var (
	paramHostIP        = signatureParam{label: "hostIP", documentation: "The host interface to bind, an IPv4 address or a bracketed IPv6 address."}
	paramHostPort      = signatureParam{label: "hostPort", documentation: "The host port or port range."}
	paramContainerPort = signatureParam{label: "containerPort", documentation: "The container port or port range."}
	paramProtocol      = signatureParam{label: "/protocol", documentation: "tcp or udp."}
	paramSource        = signatureParam{label: "source", documentation: "A host path or the name of a volume."}
	paramTarget        = signatureParam{label: "target", documentation: "The path in the container."}
	paramMode          = signatureParam{label: "mode", documentation: "ro, rw, z or Z."}
)

var portSignatures = &signatureCollection{
	name: "ports",
	match: pathMatcher{
		paths: paths(`/services/[^/]+/ports/<item>/.*`),
	},
	signatures: []signatureEntry{
		{
			label:         "hostIP:hostPort:containerPort",
			documentation: "Publishes a container port on one host interface.",
			params:        []signatureParam{paramHostIP, paramHostPort, paramContainerPort},
			matcher:       regexp.MustCompile(`^\s*-\s*["']?(\d{1,3}(?:\.\d{1,3}){3}|\[[0-9a-fA-F:]*\]):([\d-]*):([\d-]*)`),
		},
		{
			label:         "hostPort:containerPort/protocol",
			documentation: "Publishes a container port for one protocol.",
			params:        []signatureParam{paramHostPort, paramContainerPort, paramProtocol},
			matcher:       regexp.MustCompile(`^\s*-\s*["']?([\d-]*):([\d-]*)(/\w*)`),
		},
		{
			label:         "hostPort:containerPort",
			documentation: "Publishes a container port on a host port.",
			params:        []signatureParam{paramHostPort, paramContainerPort},
			matcher:       regexp.MustCompile(`^\s*-\s*["']?([\d-]*):([\d-]*)`),
		},
		{
			label:         "containerPort/protocol",
			documentation: "Publishes a container port for one protocol on a random host port.",
			params:        []signatureParam{paramContainerPort, paramProtocol},
			matcher:       regexp.MustCompile(`^\s*-\s*["']?([\d-]*)(/\w*)`),
		},
		{
			label:         "containerPort",
			documentation: "Publishes a container port on a random host port.",
			params:        []signatureParam{paramContainerPort},
			matcher:       regexp.MustCompile(`^\s*-\s*["']?([\d-]*)`),
		},
	},
}

var volumeSignatures = &signatureCollection{
	name: "volumes",
	match: pathMatcher{
		paths: paths(`/services/[^/]+/volumes/<item>/.*`),
	},
	signatures: []signatureEntry{
		{
			label:         "source:target:mode",
			documentation: "Mounts a host path or named volume with an access mode.",
			params:        []signatureParam{paramSource, paramTarget, paramMode},
			matcher:       regexp.MustCompile(`^\s*-\s*["']?([^:"'\s]*):([^:"'\s]*):([^:"'\s]*)`),
		},
		{
			label:         "source:target",
			documentation: "Mounts a host path or named volume.",
			params:        []signatureParam{paramSource, paramTarget},
			matcher:       regexp.MustCompile(`^\s*-\s*["']?([^:"'\s]*):([^:"'\s]*)`),
		},
		{
			label:         "target",
			documentation: "Mounts an anonymous volume.",
			params:        []signatureParam{paramTarget},
			matcher:       regexp.MustCompile(`^\s*-\s*["']?([^:"'\s]*)`),
		},
	},
}
