package store

// Object key layout. This is a stable contract: the discovery service and any
// external scraping collaborator rely on it.
//
//	{project}/versions/{versionId}/...   immutable once status=complete
//	{project}/current/...                mirrors exactly one versions/ tree
//	{project}/meta/...                   registry sidecars, lease, pointer

func VersionsRoot(project string) string {
	return project + "/versions/"
}

func VersionPrefix(project, versionID string) string {
	return project + "/versions/" + versionID + "/"
}

func CurrentPrefix(project string) string {
	return project + "/current/"
}

func MetaRoot(project string) string {
	return project + "/meta/"
}

func VersionMetaKey(project, versionID string) string {
	return project + "/meta/" + versionID + ".json"
}

func CurrentPointerKey(project string) string {
	return project + "/meta/current"
}

func LeaseKey(project string) string {
	return project + "/meta/lease.json"
}
